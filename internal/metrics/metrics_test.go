package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"pomodoro/internal/event"
	"pomodoro/internal/session"
)

func TestObserveCompletion(t *testing.T) {
	m := New()
	m.ObserveCompletion(event.SessionCompleted{Kind: event.KindWork, Duration: 25*time.Minute + 40*time.Second})
	m.ObserveCompletion(event.SessionCompleted{Kind: event.KindWork, Duration: 3 * time.Minute, Skipped: true})
	m.ObserveCompletion(event.SessionCompleted{Kind: event.KindShortBreak, Duration: 5 * time.Minute})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCompleted.WithLabelValues("work", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCompleted.WithLabelValues("work", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCompleted.WithLabelValues("shortBreak", "false")))
	assert.Equal(t, 28.0, testutil.ToFloat64(m.FocusMinutes))
}

func TestObserveState(t *testing.T) {
	m := New()
	m.ObserveState(session.TimerState{IsRunning: true, TimeRemaining: 90 * time.Second})
	assert.Equal(t, 90.0, testutil.ToFloat64(m.TimeRemaining))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Running))

	m.ObserveState(session.TimerState{IsPaused: true, TimeRemaining: 80 * time.Second})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Running))
}
