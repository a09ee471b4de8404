// Package session implements the Pomodoro session engine: a countdown over
// work and break sessions together with the rules that pick the next one.
package session

import (
	"sync"
	"time"

	"pomodoro/internal/event"
	"pomodoro/internal/settings"
)

// DefaultAutoStartDelay is the grace period before an auto-started session begins.
const DefaultAutoStartDelay = 2 * time.Second

// Options contains runtime options for the Engine.
type Options struct {
	Now            func() time.Time
	AutoStartDelay time.Duration
}

// TimerState is a point-in-time copy of the engine state.
type TimerState struct {
	IsRunning        bool              `json:"isRunning"`
	IsPaused         bool              `json:"isPaused"`
	CurrentSession   event.SessionKind `json:"currentSession"`
	SessionCount     int               `json:"sessionCount"`
	TimeRemaining    time.Duration     `json:"-"`
	Duration         time.Duration     `json:"-"`
	TimeRemainingMs  int64             `json:"timeRemainingMs"`
	DurationMs       int64             `json:"durationMs"`
	SessionStartedAt time.Time         `json:"sessionStartedAt"`
	AutoStartAt      time.Time         `json:"autoStartAt,omitempty"`

	// Mirrors of today's stats record, pushed in by the owner of the stats.
	CompletedPomodorosToday int `json:"completedPomodorosToday"`
	TotalFocusTimeTodayMin  int `json:"totalFocusTimeTodayMin"`
	CurrentStreak           int `json:"currentStreak"`
}

// RestoreDurations rebuilds TimeRemaining and Duration from their
// millisecond fields after a state has been decoded from JSON.
func (s *TimerState) RestoreDurations() {
	s.TimeRemaining = time.Duration(s.TimeRemainingMs) * time.Millisecond
	s.Duration = time.Duration(s.DurationMs) * time.Millisecond
}

// RunState collapses the running/paused flags into a single state.
func (s TimerState) RunState() event.RunState {
	switch {
	case s.IsRunning:
		return event.StateRunning
	case s.IsPaused:
		return event.StatePaused
	default:
		return event.StateIdle
	}
}

// Handler receives completion events. Handlers run after the engine has
// already switched to the next session and must not block for long.
type Handler func(event.SessionCompleted)

// Engine owns the timer state. All methods are safe for concurrent use;
// completion handlers are invoked outside the engine lock.
type Engine struct {
	mu       sync.Mutex
	settings settings.Settings
	options  Options
	state    TimerState
	lastTick time.Time
	handlers []Handler
}

// New creates an idle Engine positioned on a full-length work session.
func New(s settings.Settings, options Options) (*Engine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.AutoStartDelay <= 0 {
		options.AutoStartDelay = DefaultAutoStartDelay
	}

	engine := &Engine{
		settings: s,
		options:  options,
		state: TimerState{
			CurrentSession: event.KindWork,
			SessionCount:   1,
		},
	}
	engine.initializeSessionLocked(options.Now())
	return engine, nil
}

// OnSessionCompleted registers a completion observer.
func (e *Engine) OnSessionCompleted(handler Handler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	e.mu.Unlock()
}

// Snapshot returns a copy of the current timer state.
func (e *Engine) Snapshot() TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	state := e.state
	state.TimeRemainingMs = state.TimeRemaining.Milliseconds()
	state.DurationMs = state.Duration.Milliseconds()
	return state
}

// Settings returns the settings the engine is running with.
func (e *Engine) Settings() settings.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// CurrentSessionDuration returns the configured length in minutes of the current session kind.
func (e *Engine) CurrentSessionDuration() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(e.durationLocked(e.state.CurrentSession) / time.Minute)
}

// Start runs the timer. Starting while already running is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked(e.options.Now())
}

// Pause freezes the countdown. Pausing while not running is a no-op.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.IsRunning {
		return
	}
	e.state.IsRunning = false
	e.state.IsPaused = true
}

// Toggle pauses a running timer and starts it otherwise.
func (e *Engine) Toggle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.IsRunning {
		e.state.IsRunning = false
		e.state.IsPaused = true
		return
	}
	e.startLocked(e.options.Now())
}

// Reset stops the timer and rewinds the current session to its full length.
// The session kind and count are untouched; a pending auto-start is cancelled.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.IsRunning = false
	e.state.IsPaused = false
	e.state.AutoStartAt = time.Time{}
	e.initializeSessionLocked(e.options.Now())
}

// Skip ends the current session. A running session completes exactly as if it
// had expired, including the completion event. Otherwise the engine only moves
// on to the next kind and stays idle.
func (e *Engine) Skip() {
	e.mu.Lock()
	now := e.options.Now()
	if !e.state.IsRunning {
		e.state.IsPaused = false
		e.state.AutoStartAt = time.Time{}
		e.switchSessionLocked(now)
		e.mu.Unlock()
		return
	}
	completed := e.completeLocked(now, true)
	handlers := e.handlersLocked()
	e.mu.Unlock()

	dispatch(handlers, completed)
}

// AdvanceTime decrements the remaining time by delta and completes the session
// once it reaches zero. It has no effect unless the timer is running.
func (e *Engine) AdvanceTime(delta time.Duration) {
	e.mu.Lock()
	completed, ok := e.advanceLocked(delta, e.options.Now())
	handlers := e.handlersLocked()
	e.mu.Unlock()

	if ok {
		dispatch(handlers, completed)
	}
}

// Tick is the scheduler hook. While running it advances by the wall-clock time
// elapsed since the previous tick, so late or dropped ticks only make the next
// delta larger. While idle it fires a pending auto-start once it is due.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	var (
		completed event.SessionCompleted
		ok        bool
	)
	switch {
	case e.state.IsRunning:
		delta := now.Sub(e.lastTick)
		e.lastTick = now
		completed, ok = e.advanceLocked(delta, now)
	case !e.state.IsPaused && !e.state.AutoStartAt.IsZero() && !now.Before(e.state.AutoStartAt):
		e.startLocked(now)
	}
	handlers := e.handlersLocked()
	e.mu.Unlock()

	if ok {
		dispatch(handlers, completed)
	}
}

// ApplySettings validates and installs new settings, then resets the current
// session. Invalid settings are rejected and the previous ones stay in effect.
func (e *Engine) ApplySettings(s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
	e.state.IsRunning = false
	e.state.IsPaused = false
	e.state.AutoStartAt = time.Time{}
	e.initializeSessionLocked(e.options.Now())
	return nil
}

// SetTodayMirror refreshes the copy of today's stats kept for display.
func (e *Engine) SetTodayMirror(completed, focusMinutes, streak int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.CompletedPomodorosToday = completed
	e.state.TotalFocusTimeTodayMin = focusMinutes
	e.state.CurrentStreak = streak
}

func (e *Engine) startLocked(now time.Time) {
	if e.state.IsRunning {
		return
	}
	if e.state.TimeRemaining <= 0 {
		e.initializeSessionLocked(now)
	} else if !e.state.IsPaused && e.state.TimeRemaining == e.state.Duration {
		// Untouched session: count it from the moment it actually starts.
		e.state.SessionStartedAt = now
	}
	e.state.IsRunning = true
	e.state.IsPaused = false
	e.state.AutoStartAt = time.Time{}
	e.lastTick = now
}

func (e *Engine) advanceLocked(delta time.Duration, now time.Time) (event.SessionCompleted, bool) {
	if !e.state.IsRunning || delta <= 0 {
		return event.SessionCompleted{}, false
	}
	e.state.TimeRemaining -= delta
	if e.state.TimeRemaining > 0 {
		return event.SessionCompleted{}, false
	}
	e.state.TimeRemaining = 0
	return e.completeLocked(now, false), true
}

func (e *Engine) completeLocked(now time.Time, skipped bool) event.SessionCompleted {
	completed := event.SessionCompleted{
		Kind:      e.state.CurrentSession,
		StartedAt: e.state.SessionStartedAt,
		EndedAt:   now,
		Duration:  now.Sub(e.state.SessionStartedAt),
		Skipped:   skipped,
	}

	e.state.IsRunning = false
	e.state.IsPaused = false
	e.switchSessionLocked(now)
	completed.Next = e.state.CurrentSession

	if e.shouldAutoStartLocked() {
		e.state.AutoStartAt = now.Add(e.options.AutoStartDelay)
		completed.AutoStart = true
	}
	return completed
}

func (e *Engine) switchSessionLocked(now time.Time) {
	if e.state.CurrentSession == event.KindWork {
		if e.state.SessionCount%e.settings.LongBreakInterval == 0 {
			e.state.CurrentSession = event.KindLongBreak
		} else {
			e.state.CurrentSession = event.KindShortBreak
		}
	} else {
		e.state.CurrentSession = event.KindWork
		e.state.SessionCount++
	}
	e.initializeSessionLocked(now)
}

func (e *Engine) initializeSessionLocked(now time.Time) {
	e.state.Duration = e.durationLocked(e.state.CurrentSession)
	e.state.TimeRemaining = e.state.Duration
	e.state.SessionStartedAt = now
}

func (e *Engine) shouldAutoStartLocked() bool {
	if e.state.CurrentSession == event.KindWork {
		return e.settings.AutoStartWork
	}
	return e.settings.AutoStartBreaks
}

func (e *Engine) durationLocked(kind event.SessionKind) time.Duration {
	switch kind {
	case event.KindShortBreak:
		return e.settings.ShortBreakLength()
	case event.KindLongBreak:
		return e.settings.LongBreakLength()
	default:
		return e.settings.WorkLength()
	}
}

func (e *Engine) handlersLocked() []Handler {
	return append([]Handler(nil), e.handlers...)
}

func dispatch(handlers []Handler, completed event.SessionCompleted) {
	for _, handler := range handlers {
		handler(completed)
	}
}
