package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pomodoro/internal/event"
)

const dateLayout = "2006-01-02"

// ErrCorrupt is returned when the persisted stats blob cannot be used.
var ErrCorrupt = errors.New("corrupt stats data")

// CompletedSession is one credited work session. Times are epoch milliseconds.
type CompletedSession struct {
	ID       string            `json:"id,omitempty" yaml:"id,omitempty"`
	Start    int64             `json:"start" yaml:"start"`
	End      int64             `json:"end" yaml:"end"`
	Duration int64             `json:"duration" yaml:"duration"`
	Type     event.SessionKind `json:"type" yaml:"type"`
}

func (c CompletedSession) StartedAt() time.Time { return time.UnixMilli(c.Start) }
func (c CompletedSession) EndedAt() time.Time   { return time.UnixMilli(c.End) }

// DailyRecord holds the pomodoros credited to one calendar day.
type DailyRecord struct {
	CompletedPomodoros int                `json:"completedPomodoros" yaml:"completed_pomodoros"`
	TotalFocusTimeMin  int                `json:"totalFocusTime" yaml:"total_focus_time_min"`
	Sessions           []CompletedSession `json:"sessions" yaml:"sessions"`
}

// AllTimeStats are running totals over every recorded day.
type AllTimeStats struct {
	TotalPomodoros          int     `json:"totalPomodoros" yaml:"total_pomodoros"`
	TotalFocusTimeMin       int     `json:"totalFocusTime" yaml:"total_focus_time_min"`
	LongestStreak           int     `json:"longestStreak" yaml:"longest_streak"`
	AverageSessionLengthMin float64 `json:"averageSessionLength" yaml:"average_session_length_min"`
}

// Stats is the persisted stats blob. Weekly and monthly figures are derived
// from Daily on demand and never stored.
type Stats struct {
	Daily   map[string]*DailyRecord `json:"daily"`
	AllTime AllTimeStats            `json:"allTime"`
}

func newStats() Stats {
	return Stats{Daily: make(map[string]*DailyRecord)}
}

func (s Stats) clone() Stats {
	out := Stats{Daily: make(map[string]*DailyRecord, len(s.Daily)), AllTime: s.AllTime}
	for key, record := range s.Daily {
		copied := record.clone()
		out.Daily[key] = &copied
	}
	return out
}

func (r DailyRecord) clone() DailyRecord {
	r.Sessions = append([]CompletedSession{}, r.Sessions...)
	return r
}

// Period names an aggregation window.
type Period string

const (
	PeriodToday   Period = "today"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodAllTime Period = "all"
)

// ParsePeriod accepts the canonical names plus a few common aliases.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "today", "day", "":
		return PeriodToday, nil
	case "week", "this-week":
		return PeriodWeek, nil
	case "month", "this-month":
		return PeriodMonth, nil
	case "all", "all-time", "alltime":
		return PeriodAllTime, nil
	}
	return "", fmt.Errorf("unknown period %q (use today, week, month or all)", s)
}

// Aggregate is the report for one period. LongestStreak and
// AverageSessionLengthMin are only tracked for PeriodAllTime.
type Aggregate struct {
	Period                  Period  `json:"period" yaml:"period"`
	CompletedPomodoros      int     `json:"completedPomodoros" yaml:"completed_pomodoros"`
	TotalFocusTimeMin       int     `json:"totalFocusTimeMin" yaml:"total_focus_time_min"`
	LongestStreak           int     `json:"longestStreak" yaml:"longest_streak"`
	AverageSessionLengthMin float64 `json:"averageSessionLengthMin" yaml:"average_session_length_min"`
}

// DayEntry pairs a date key with its record, used for history listings.
type DayEntry struct {
	Date string `json:"date" yaml:"date"`
	DailyRecord
}

// decode parses and validates a stats blob. Entries whose key is not a
// calendar date are dropped; negative counters make the whole blob corrupt.
func decode(data []byte) (Stats, []string, error) {
	var raw Stats
	if err := json.Unmarshal(data, &raw); err != nil {
		return newStats(), nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	out := newStats()
	var dropped []string
	for key, record := range raw.Daily {
		if _, err := time.Parse(dateLayout, key); err != nil || record == nil {
			dropped = append(dropped, key)
			continue
		}
		if record.CompletedPomodoros < 0 || record.TotalFocusTimeMin < 0 {
			return newStats(), nil, fmt.Errorf("%w: negative counters on %s", ErrCorrupt, key)
		}
		if record.Sessions == nil {
			record.Sessions = []CompletedSession{}
		}
		out.Daily[key] = record
	}

	a := raw.AllTime
	if a.TotalPomodoros < 0 || a.TotalFocusTimeMin < 0 || a.LongestStreak < 0 || a.AverageSessionLengthMin < 0 {
		return newStats(), nil, fmt.Errorf("%w: negative all-time counters", ErrCorrupt)
	}
	out.AllTime = a
	return out, dropped, nil
}
