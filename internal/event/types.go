package event

import "time"

// SessionKind is the type of interval the timer is counting down.
type SessionKind string

const (
	KindWork       SessionKind = "work"
	KindShortBreak SessionKind = "shortBreak"
	KindLongBreak  SessionKind = "longBreak"
)

// Valid reports whether k is one of the known session kinds.
func (k SessionKind) Valid() bool {
	switch k {
	case KindWork, KindShortBreak, KindLongBreak:
		return true
	}
	return false
}

// Label returns a human readable name for the kind.
func (k SessionKind) Label() string {
	switch k {
	case KindWork:
		return "Work"
	case KindShortBreak:
		return "Short Break"
	case KindLongBreak:
		return "Long Break"
	default:
		return "Unknown"
	}
}

// RunState of the timer
type RunState string

const (
	StateIdle    RunState = "idle"
	StateRunning RunState = "running"
	StatePaused  RunState = "paused"
)

// SessionCompleted is emitted by the session engine whenever a session ends,
// either by natural expiry or by a skip while running.
type SessionCompleted struct {
	Kind      SessionKind
	Next      SessionKind
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	Skipped   bool // Completed through Skip rather than expiry
	AutoStart bool // The next session will start on its own after the grace delay
}

type Notification struct {
	Title   string
	Message string
	Kind    SessionKind
}
