package ipc

import (
	"pomodoro/internal/event"
	"pomodoro/internal/session"
	"pomodoro/internal/stats"
)

// Command represents a command sent over the socket
type Command struct {
	Name string      `json:"name"`
	Args interface{} `json:"args,omitempty"`
}

// Response represents a response sent back over the socket
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"` // Optional data in response
}

// --- Command Argument Structs ---

type StatsArgs struct {
	Period string `json:"period"` // today, week, month, all
}

type HistoryArgs struct {
	Days int `json:"days"`
}

// apply_settings takes any subset of the settings.Settings json keys as its
// args. Missing keys keep their current value.

// --- Command Names (Constants) ---

const (
	CmdPing          = "ping" // Simple health check
	CmdStart         = "start"
	CmdPause         = "pause"
	CmdToggle        = "toggle"
	CmdReset         = "reset"
	CmdSkip          = "skip"
	CmdGetStatus     = "get_status"
	CmdGetStats      = "get_stats"
	CmdGetHistory    = "get_history"
	CmdGetSettings   = "get_settings"
	CmdApplySettings = "apply_settings"
	CmdResetSettings = "reset_settings"
)

// DefaultHistoryDays is used when get_history is sent without days.
const DefaultHistoryDays = 7

// --- Response Data ---

type StatusData struct {
	session.TimerState
	State           event.RunState `json:"state"`
	DailyGoal       int            `json:"dailyGoal"`
	PersistenceLost bool           `json:"persistenceLost"`
}

type HistoryData struct {
	Days []stats.DayEntry `json:"days"`
}
