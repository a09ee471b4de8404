package main

import (
	"bytes"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomodoro/internal/event"
	"pomodoro/internal/ipc"
	"pomodoro/internal/session"
)

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"workDuration=50", "auto_start_work=1", "NotificationSound=chime", "sound_volume= 30"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"workDuration":      50,
		"autoStartWork":     true,
		"notificationSound": "chime",
		"soundVolume":       30,
	}, got)
}

func TestParseAssignmentsErrors(t *testing.T) {
	_, err := parseAssignments([]string{"workDuration"})
	assert.ErrorContains(t, err, "expected key=value")

	_, err = parseAssignments([]string{"theme=dark"})
	assert.ErrorContains(t, err, "unknown setting")

	_, err = parseAssignments([]string{"dailyGoal=lots"})
	assert.ErrorContains(t, err, "dailyGoal")
}

func TestToYAML(t *testing.T) {
	out, err := toYAML(json.RawMessage(`{"period":"week","completedPomodoros":6,"label":"true","nested":{"a":[1,2]}}`))
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.HasPrefix(text, "period: week\n"), "keys keep their order:\n%s", text)
	assert.Contains(t, text, "completedPomodoros: 6\n")
	assert.Contains(t, text, `label: "true"`)
	assert.Contains(t, text, "- 1\n")
	assert.NotContains(t, text, "{")
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "25:00", formatClock(25*time.Minute))
	assert.Equal(t, "04:05", formatClock(4*time.Minute+5*time.Second))
	assert.Equal(t, "00:00", formatClock(-time.Second))
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, ipc.StatusData{
		TimerState: session.TimerState{
			CurrentSession:          event.KindShortBreak,
			SessionCount:            3,
			TimeRemaining:           4*time.Minute + 30*time.Second,
			CompletedPomodorosToday: 3,
			TotalFocusTimeTodayMin:  75,
		},
		State:     event.StatePaused,
		DailyGoal: 4,
	})
	assert.Equal(t, "Short Break  04:30  (paused, session 3)\nToday: ●●●○ 3/4 pomodoros, 75 min focus\n", buf.String())
}

// serveOnce answers a single command on a fresh unix socket.
func serveOnce(t *testing.T, reply ipc.Response) (string, <-chan ipc.Command) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	received := make(chan ipc.Command, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var cmd ipc.Command
		if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
			return
		}
		received <- cmd
		_ = json.NewEncoder(conn).Encode(reply)
	}()
	return path, received
}

func TestClientSend(t *testing.T) {
	path, received := serveOnce(t, ipc.Response{Success: true, Message: "pong"})
	c := &client{socketPath: path, timeout: time.Second}

	message, raw, err := c.send(ipc.Command{Name: ipc.CmdPing})
	require.NoError(t, err)
	assert.Equal(t, "pong", message)
	assert.Empty(t, raw)
	assert.Equal(t, ipc.CmdPing, (<-received).Name)
}

func TestClientSendFailure(t *testing.T) {
	path, _ := serveOnce(t, ipc.Response{Success: false, Message: "invalid settings: workDuration must be within 1..1440 minutes, got 0"})
	c := &client{socketPath: path, timeout: time.Second}

	_, _, err := c.send(ipc.Command{Name: ipc.CmdApplySettings})
	assert.EqualError(t, err, "invalid settings: workDuration must be within 1..1440 minutes, got 0")
}

func TestClientStatus(t *testing.T) {
	path, _ := serveOnce(t, ipc.Response{Success: true, Data: ipc.StatusData{
		TimerState: session.TimerState{IsRunning: true, CurrentSession: event.KindWork, SessionCount: 2, TimeRemainingMs: 90_000},
		State:      event.StateRunning,
		DailyGoal:  8,
	}})
	c := &client{socketPath: path, timeout: time.Second}

	st, err := c.status()
	require.NoError(t, err)
	assert.Equal(t, event.StateRunning, st.State)
	assert.Equal(t, 90*time.Second, st.TimeRemaining)
	assert.Equal(t, 2, st.SessionCount)
	assert.Equal(t, 8, st.DailyGoal)
}

func TestStatusTextUsesMilliseconds(t *testing.T) {
	raw := json.RawMessage(`{"currentSession":"work","sessionCount":1,"timeRemainingMs":1499000,"durationMs":1500000,"state":"running","dailyGoal":8}`)
	var buf bytes.Buffer
	require.NoError(t, statusText(&buf, raw))
	assert.True(t, strings.HasPrefix(buf.String(), "Work  24:59  (running, session 1)\n"), buf.String())
}

func TestClientNoDaemon(t *testing.T) {
	c := &client{socketPath: filepath.Join(t.TempDir(), "missing.sock"), timeout: time.Second}
	_, _, err := c.send(ipc.Command{Name: ipc.CmdPing})
	assert.ErrorContains(t, err, "Is the pomodoro daemon running?")
}
