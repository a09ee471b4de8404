// Package stats accumulates completed work sessions into per-day records
// and all-time totals, and derives weekly and monthly reports from them.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pomodoro/internal/event"
	"pomodoro/internal/storage"
)

// Options configures a Tracker.
type Options struct {
	Now func() time.Time
	// Location decides which calendar day an event belongs to. Defaults to time.Local.
	Location *time.Location
}

// Tracker owns the historical records. Every recording is written through to
// the store before it returns.
type Tracker struct {
	// saveMu orders store writes; it is taken before mu and held until Save
	// returns so an older blob never lands after a newer one.
	saveMu  sync.Mutex
	mu      sync.Mutex
	store   storage.Store
	options Options
	stats   Stats
}

// NewTracker returns a tracker with empty stats. Call Load to read the stored blob.
func NewTracker(store storage.Store, options Options) *Tracker {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.Location == nil {
		options.Location = time.Local
	}
	return &Tracker{store: store, options: options, stats: newStats()}
}

// Load reads the stats blob. A missing blob is not an error. On any other
// failure the tracker keeps empty stats and the error is returned for logging.
func (t *Tracker) Load(ctx context.Context) error {
	data, err := t.store.Load(ctx, storage.KeyStats)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	loaded, dropped, err := decode(data)
	t.mu.Lock()
	t.stats = loaded
	t.mu.Unlock()
	if err != nil {
		return err
	}
	for _, key := range dropped {
		log.Printf("Warning: dropping stats entry with invalid date key %q", key)
	}
	return nil
}

// RecordCompletedWorkSession credits one pomodoro to the day the session ended
// on and returns that day's updated record.
func (t *Tracker) RecordCompletedWorkSession(ctx context.Context, startedAt, endedAt time.Time) (DailyRecord, error) {
	elapsed := endedAt.Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	minutes := int(elapsed / time.Minute)

	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.Lock()
	key := t.dateKey(endedAt)
	record := t.recordLocked(key)
	record.CompletedPomodoros++
	record.TotalFocusTimeMin += minutes
	record.Sessions = append(record.Sessions, CompletedSession{
		ID:       uuid.NewString(),
		Start:    startedAt.UnixMilli(),
		End:      endedAt.UnixMilli(),
		Duration: elapsed.Milliseconds(),
		Type:     event.KindWork,
	})

	all := &t.stats.AllTime
	all.TotalPomodoros++
	all.TotalFocusTimeMin += minutes
	// The streak is the number of pomodoros completed on the current day.
	if streak := record.CompletedPomodoros; streak > all.LongestStreak {
		all.LongestStreak = streak
	}
	all.AverageSessionLengthMin = float64(all.TotalFocusTimeMin) / float64(all.TotalPomodoros)

	updated := record.clone()
	data, err := json.Marshal(t.stats)
	t.mu.Unlock()

	if err != nil {
		return updated, fmt.Errorf("marshal stats: %w", err)
	}
	if err := t.store.Save(ctx, storage.KeyStats, data); err != nil {
		return updated, fmt.Errorf("save stats: %w", err)
	}
	return updated, nil
}

// CurrentStreak is today's completed pomodoro count.
func (t *Tracker) CurrentStreak() int {
	return t.Today().CompletedPomodoros
}

// Today returns a copy of today's record, empty if nothing was recorded yet.
func (t *Tracker) Today() DailyRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dayLocked(t.dateKey(t.options.Now()))
}

// Day returns a copy of the record for a YYYY-MM-DD key.
func (t *Tracker) Day(key string) DailyRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dayLocked(key)
}

// Aggregate sums the records of the requested period.
func (t *Tracker) Aggregate(period Period) (Aggregate, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.options.Now().In(t.options.Location)
	agg := Aggregate{Period: period}
	add := func(record *DailyRecord) {
		if record == nil {
			return
		}
		agg.CompletedPomodoros += record.CompletedPomodoros
		agg.TotalFocusTimeMin += record.TotalFocusTimeMin
	}

	switch period {
	case PeriodToday:
		add(t.stats.Daily[t.dateKey(now)])
	case PeriodWeek:
		weekStart := midnight(now).AddDate(0, 0, -int(now.Weekday()))
		for i := 0; i < 7; i++ {
			add(t.stats.Daily[weekStart.AddDate(0, 0, i).Format(dateLayout)])
		}
	case PeriodMonth:
		for key, record := range t.stats.Daily {
			day, err := time.ParseInLocation(dateLayout, key, t.options.Location)
			if err != nil {
				continue
			}
			if day.Year() == now.Year() && day.Month() == now.Month() {
				add(record)
			}
		}
	case PeriodAllTime:
		all := t.stats.AllTime
		agg.CompletedPomodoros = all.TotalPomodoros
		agg.TotalFocusTimeMin = all.TotalFocusTimeMin
		agg.LongestStreak = all.LongestStreak
		agg.AverageSessionLengthMin = all.AverageSessionLengthMin
	default:
		return Aggregate{}, fmt.Errorf("unknown period %q", period)
	}
	return agg, nil
}

// History lists the last n days ending today, oldest first. Days without a
// record are reported as zero.
func (t *Tracker) History(n int) []DayEntry {
	if n <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	today := midnight(t.options.Now().In(t.options.Location))
	entries := make([]DayEntry, 0, n)
	for i := n - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(dateLayout)
		entries = append(entries, DayEntry{Date: key, DailyRecord: t.dayLocked(key)})
	}
	return entries
}

// RecordedDays returns every date key that has a record, sorted.
func (t *Tracker) RecordedDays() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.stats.Daily))
	for key := range t.stats.Daily {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of all stats.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats.clone()
}

func (t *Tracker) recordLocked(key string) *DailyRecord {
	record, exists := t.stats.Daily[key]
	if !exists {
		record = &DailyRecord{Sessions: []CompletedSession{}}
		t.stats.Daily[key] = record
	}
	return record
}

func (t *Tracker) dayLocked(key string) DailyRecord {
	if record, exists := t.stats.Daily[key]; exists {
		return record.clone()
	}
	return DailyRecord{Sessions: []CompletedSession{}}
}

func (t *Tracker) dateKey(at time.Time) string {
	return at.In(t.options.Location).Format(dateLayout)
}

func midnight(at time.Time) time.Time {
	y, m, d := at.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, at.Location())
}
