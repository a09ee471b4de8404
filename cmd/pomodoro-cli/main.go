package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pomodoro/internal/config"
	"pomodoro/internal/ipc"
	"pomodoro/internal/stats"
)

var (
	socketPath   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:           "pomodoro-cli",
	Short:         "CLI tool to interact with the Pomodoro daemon",
	Long:          `A command-line interface to drive the running Pomodoro daemon (start, pause, skip, statistics, settings) via its Unix socket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("socket") {
			if env := os.Getenv("POMODORO_SOCKET_PATH"); env != "" {
				socketPath = env
			}
		}
		_, err := resolveFormat(outputFormat, os.Stdout)
		return err
	},
}

// textRenderer decodes a payload and prints it for humans.
type textRenderer func(w io.Writer, raw json.RawMessage) error

func renderAs[T any](render func(io.Writer, T) error) textRenderer {
	return func(w io.Writer, raw json.RawMessage) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return render(w, v)
	}
}

var (
	statusText = renderAs(func(w io.Writer, st ipc.StatusData) error {
		st.RestoreDurations()
		renderStatus(w, st)
		return nil
	})
	aggregateText = renderAs(func(w io.Writer, a stats.Aggregate) error {
		renderAggregate(w, a)
		return nil
	})
	historyText  = renderAs(renderHistory)
	settingsText = renderAs(renderSettings)
)

// run sends cmd and prints the reply in the selected format.
func run(cmd ipc.Command, text textRenderer) error {
	message, raw, err := newClient().send(cmd)
	if err != nil {
		return err
	}
	format, err := resolveFormat(outputFormat, os.Stdout)
	if err != nil {
		return err
	}

	if format == formatText {
		if message != "" {
			fmt.Println(message)
		}
		if text != nil && len(raw) > 0 {
			return text(os.Stdout, raw)
		}
		return nil
	}
	if len(raw) == 0 {
		raw, err = json.Marshal(map[string]string{"message": message})
		if err != nil {
			return err
		}
	}
	return writeData(os.Stdout, format, raw)
}

func controlCmd(use, short, name string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(ipc.Command{Name: name}, statusText)
		},
	}
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if the Pomodoro daemon is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(ipc.Command{Name: ipc.CmdPing}, nil)
	},
}

var statsCmd = &cobra.Command{
	Use:       "stats [today|week|month|all]",
	Short:     "Show completed pomodoros and focus time for a period",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"today", "week", "month", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		period := string(stats.PeriodToday)
		if len(args) == 1 {
			p, err := stats.ParsePeriod(args[0])
			if err != nil {
				return err
			}
			period = string(p)
		}
		return run(ipc.Command{Name: ipc.CmdGetStats, Args: ipc.StatsArgs{Period: period}}, aggregateText)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the daily record for the last days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		return run(ipc.Command{Name: ipc.CmdGetHistory, Args: ipc.HistoryArgs{Days: days}}, historyText)
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the timer settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(ipc.Command{Name: ipc.CmdGetSettings}, settingsText)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:     "set key=value...",
	Short:   "Change one or more settings (e.g. workDuration=50 auto_start_work=true)",
	Example: "  pomodoro-cli settings set workDuration=50 shortBreakDuration=10\n  pomodoro-cli settings set notification_sound=chime sound_volume=30",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changes, err := parseAssignments(args)
		if err != nil {
			return err
		}
		return run(ipc.Command{Name: ipc.CmdApplySettings, Args: changes}, settingsText)
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(ipc.Command{Name: ipc.CmdResetSettings}, settingsText)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of the timer (space: start/pause, s: skip, r: reset, q: quit)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval < 100*time.Millisecond {
			interval = time.Second
		}
		c := newClient()
		if _, _, err := c.send(ipc.Command{Name: ipc.CmdPing}); err != nil {
			return err
		}
		return runWatch(c, interval)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", config.DefaultSocketPath, "Path to the daemon socket (env POMODORO_SOCKET_PATH)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", formatAuto, "Output format: auto, text, json or yaml")

	// --- Timer Commands ---
	rootCmd.AddCommand(controlCmd("start", "Start or resume the timer", ipc.CmdStart))
	rootCmd.AddCommand(controlCmd("pause", "Pause the timer", ipc.CmdPause))
	rootCmd.AddCommand(controlCmd("toggle", "Start the timer if stopped, pause it if running", ipc.CmdToggle))
	rootCmd.AddCommand(controlCmd("reset", "Rewind the current session", ipc.CmdReset))
	rootCmd.AddCommand(controlCmd("skip", "End the current session and move to the next", ipc.CmdSkip))
	rootCmd.AddCommand(controlCmd("status", "Show the timer and today's progress", ipc.CmdGetStatus))

	// --- Statistics ---
	historyCmd.Flags().IntP("days", "d", ipc.DefaultHistoryDays, "Number of days to show, ending today")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)

	// --- Settings ---
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)

	// --- Other Commands ---
	watchCmd.Flags().Duration("interval", time.Second, "Refresh interval")
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(pingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
