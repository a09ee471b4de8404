package app

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"pomodoro/internal/ipc"
	"pomodoro/internal/stats"
)

const maxHistoryDays = 366

// processCommand routes the command to the correct handler
func (a *App) processCommand(cmd ipc.Command) ipc.Response {
	switch cmd.Name {
	case ipc.CmdPing:
		return ipc.Response{Success: true, Message: "pong"}

	case ipc.CmdStart:
		a.engine.Start()
		return a.statusResponse("Timer started")

	case ipc.CmdPause:
		a.engine.Pause()
		return a.statusResponse("Timer paused")

	case ipc.CmdToggle:
		a.engine.Toggle()
		if a.engine.Snapshot().IsRunning {
			return a.statusResponse("Timer started")
		}
		return a.statusResponse("Timer paused")

	case ipc.CmdReset:
		a.engine.Reset()
		return a.statusResponse("Session reset")

	case ipc.CmdSkip:
		from := a.engine.Snapshot().CurrentSession
		a.engine.Skip()
		return a.statusResponse(fmt.Sprintf("Skipped %s", from.Label()))

	case ipc.CmdGetStatus:
		return a.statusResponse("")

	case ipc.CmdGetStats:
		var args ipc.StatsArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
		}
		period, err := stats.ParsePeriod(args.Period)
		if err != nil {
			return ipc.Response{Success: false, Message: err.Error()}
		}
		aggregate, err := a.tracker.Aggregate(period)
		if err != nil {
			return ipc.Response{Success: false, Message: err.Error()}
		}
		return ipc.Response{Success: true, Data: aggregate}

	case ipc.CmdGetHistory:
		args := ipc.HistoryArgs{Days: ipc.DefaultHistoryDays}
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
		}
		if args.Days <= 0 || args.Days > maxHistoryDays {
			return ipc.Response{Success: false, Message: fmt.Sprintf("days must be between 1 and %d", maxHistoryDays)}
		}
		return ipc.Response{Success: true, Data: ipc.HistoryData{Days: a.tracker.History(args.Days)}}

	case ipc.CmdGetSettings:
		return ipc.Response{Success: true, Data: a.engine.Settings()}

	case ipc.CmdApplySettings:
		// Keys missing from args keep their current value.
		s := a.engine.Settings()
		if err := decodeArgs(cmd.Args, &s); err != nil {
			return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
		}
		if err := a.engine.ApplySettings(s); err != nil {
			return ipc.Response{Success: false, Message: err.Error()}
		}
		a.saveSettings(s)
		return ipc.Response{Success: true, Message: "Settings applied", Data: s}

	case ipc.CmdResetSettings:
		s := a.cfg.InitialSettings()
		if err := a.engine.ApplySettings(s); err != nil {
			return ipc.Response{Success: false, Message: err.Error()}
		}
		a.saveSettings(s)
		return ipc.Response{Success: true, Message: "Settings reset to defaults", Data: s}

	default:
		return ipc.Response{Success: false, Message: fmt.Sprintf("Unknown command: %s", cmd.Name)}
	}
}

func (a *App) status() ipc.StatusData {
	state := a.engine.Snapshot()
	a.metrics.ObserveState(state)
	return ipc.StatusData{
		TimerState:      state,
		State:           state.RunState(),
		DailyGoal:       a.engine.Settings().DailyGoal,
		PersistenceLost: a.store.Degraded(),
	}
}

func (a *App) statusResponse(message string) ipc.Response {
	return ipc.Response{Success: true, Message: message, Data: a.status()}
}

// decodeArgs fills output from the generic args of a decoded Command. Fields
// are matched by their json tags; unknown keys and fractional numbers for
// integer fields are rejected.
func decodeArgs(input interface{}, output interface{}) error {
	if input == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		DecodeHook:       wholeNumbers,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// wholeNumbers stops the weakly typed decoder from truncating JSON numbers
// such as 25.7 into integer fields.
func wholeNumbers(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	if f, ok := data.(float64); ok && (f != math.Trunc(f) || math.IsInf(f, 0)) {
		return nil, fmt.Errorf("expected a whole number, got %v", f)
	}
	return data, nil
}
