package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"pomodoro/internal/event"
	"pomodoro/internal/ipc"
	"pomodoro/internal/settings"
	"pomodoro/internal/stats"
)

const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// resolveFormat turns "auto" into text for terminals and json otherwise.
func resolveFormat(format string, out *os.File) (string, error) {
	switch format {
	case formatAuto:
		if term.IsTerminal(int(out.Fd())) {
			return formatText, nil
		}
		return formatJSON, nil
	case formatText, formatJSON, formatYAML:
		return format, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text, json or yaml)", format)
}

// writeData prints a response payload as indented JSON or as YAML.
func writeData(w io.Writer, format string, raw json.RawMessage) error {
	switch format {
	case formatJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	case formatYAML:
		out, err := toYAML(raw)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	return fmt.Errorf("format %q cannot print raw data", format)
}

// toYAML re-encodes a JSON document as block-style YAML, keeping key order.
func toYAML(raw json.RawMessage) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	// The encoder re-quotes strings that would otherwise read as another type.
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d - m*time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}

func goalBar(done, goal int) string {
	if goal <= 0 {
		return ""
	}
	filled := done
	if filled > goal {
		filled = goal
	}
	return strings.Repeat("●", filled) + strings.Repeat("○", goal-filled)
}

func renderStatus(w io.Writer, st ipc.StatusData) {
	fmt.Fprintf(w, "%s  %s  (%s, session %d)\n", st.CurrentSession.Label(), formatClock(st.TimeRemaining), st.State, st.SessionCount)
	if st.State == event.StateIdle && !st.AutoStartAt.IsZero() {
		fmt.Fprintf(w, "Starts automatically at %s\n", st.AutoStartAt.Format(time.Kitchen))
	}
	fmt.Fprintf(w, "Today: %s %d/%d pomodoros, %d min focus\n",
		goalBar(st.CompletedPomodorosToday, st.DailyGoal), st.CompletedPomodorosToday, st.DailyGoal, st.TotalFocusTimeTodayMin)
	if st.PersistenceLost {
		fmt.Fprintln(w, "Warning: storage unavailable, progress is kept in memory only")
	}
}

func renderAggregate(w io.Writer, a stats.Aggregate) {
	fmt.Fprintf(w, "Period:              %s\n", a.Period)
	fmt.Fprintf(w, "Completed pomodoros: %d\n", a.CompletedPomodoros)
	fmt.Fprintf(w, "Focus time:          %s\n", formatMinutes(a.TotalFocusTimeMin))
	if a.Period == stats.PeriodAllTime {
		fmt.Fprintf(w, "Longest streak:      %d\n", a.LongestStreak)
		fmt.Fprintf(w, "Average session:     %.1f min\n", a.AverageSessionLengthMin)
	}
}

func renderHistory(w io.Writer, h ipc.HistoryData) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPOMODOROS\tFOCUS\t")
	for _, day := range h.Days {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", day.Date, day.CompletedPomodoros, formatMinutes(day.TotalFocusTimeMin),
			strings.Repeat("●", day.CompletedPomodoros))
	}
	return tw.Flush()
}

func renderSettings(w io.Writer, s settings.Settings) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		key   string
		value interface{}
	}{
		{"workDuration", fmt.Sprintf("%d min", s.WorkDuration)},
		{"shortBreakDuration", fmt.Sprintf("%d min", s.ShortBreakDuration)},
		{"longBreakDuration", fmt.Sprintf("%d min", s.LongBreakDuration)},
		{"longBreakInterval", s.LongBreakInterval},
		{"dailyGoal", s.DailyGoal},
		{"autoStartBreaks", s.AutoStartBreaks},
		{"autoStartWork", s.AutoStartWork},
		{"soundEnabled", s.SoundEnabled},
		{"soundVolume", s.SoundVolume},
		{"notificationSound", s.NotificationSound},
		{"showNotifications", s.ShowNotifications},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%v\n", row.key, row.value)
	}
	return tw.Flush()
}

func formatMinutes(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
