// Package settings holds the user-configurable timer settings, their
// defaults and the rules for validating and decoding them.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidSettings is returned when a duration, interval or goal is out of range.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrCorrupt is returned when a persisted settings blob cannot be parsed.
	ErrCorrupt = errors.New("corrupt settings data")
)

// MaxDurationMinutes caps every session length at one day.
const MaxDurationMinutes = 24 * 60

// Sound names and the tone frequency (Hz) each one maps to.
var soundFrequencies = map[string]int{
	"bell":  800,
	"chime": 600,
	"ding":  1000,
	"pop":   400,
}

// Settings are the timer options a user can change. Durations are minutes.
type Settings struct {
	WorkDuration       int  `json:"workDuration" yaml:"work_duration"`
	ShortBreakDuration int  `json:"shortBreakDuration" yaml:"short_break_duration"`
	LongBreakDuration  int  `json:"longBreakDuration" yaml:"long_break_duration"`
	LongBreakInterval  int  `json:"longBreakInterval" yaml:"long_break_interval"`
	DailyGoal          int  `json:"dailyGoal" yaml:"daily_goal"`
	AutoStartBreaks    bool `json:"autoStartBreaks" yaml:"auto_start_breaks"`
	AutoStartWork      bool `json:"autoStartWork" yaml:"auto_start_work"`

	SoundEnabled      bool   `json:"soundEnabled" yaml:"sound_enabled"`
	SoundVolume       int    `json:"soundVolume" yaml:"sound_volume"`
	NotificationSound string `json:"notificationSound" yaml:"notification_sound"`
	ShowNotifications bool   `json:"showNotifications" yaml:"show_notifications"`
}

// Defaults returns the factory settings.
func Defaults() Settings {
	return Settings{
		WorkDuration:       25,
		ShortBreakDuration: 5,
		LongBreakDuration:  15,
		LongBreakInterval:  4,
		DailyGoal:          8,
		AutoStartBreaks:    true,
		AutoStartWork:      false,
		SoundEnabled:       true,
		SoundVolume:        50,
		NotificationSound:  "bell",
		ShowNotifications:  true,
	}
}

// Validate checks every field and reports all violations at once.
func (s Settings) Validate() error {
	var problems []string
	check := func(name string, v int) {
		if v <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", name, v))
		}
	}
	checkLength := func(name string, v int) {
		if v <= 0 || v > MaxDurationMinutes {
			problems = append(problems, fmt.Sprintf("%s must be within 1..%d minutes, got %d", name, MaxDurationMinutes, v))
		}
	}
	checkLength("workDuration", s.WorkDuration)
	checkLength("shortBreakDuration", s.ShortBreakDuration)
	checkLength("longBreakDuration", s.LongBreakDuration)
	check("longBreakInterval", s.LongBreakInterval)
	check("dailyGoal", s.DailyGoal)
	if s.SoundVolume < 0 || s.SoundVolume > 100 {
		problems = append(problems, fmt.Sprintf("soundVolume must be within 0..100, got %d", s.SoundVolume))
	}
	if _, ok := soundFrequencies[s.NotificationSound]; !ok {
		problems = append(problems, fmt.Sprintf("unknown notificationSound %q", s.NotificationSound))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

func (s Settings) WorkLength() time.Duration {
	return time.Duration(s.WorkDuration) * time.Minute
}
func (s Settings) ShortBreakLength() time.Duration {
	return time.Duration(s.ShortBreakDuration) * time.Minute
}
func (s Settings) LongBreakLength() time.Duration {
	return time.Duration(s.LongBreakDuration) * time.Minute
}

// SoundFrequency returns the tone frequency for the configured sound,
// falling back to the bell.
func (s Settings) SoundFrequency() int {
	if f, ok := soundFrequencies[s.NotificationSound]; ok {
		return f
	}
	return soundFrequencies["bell"]
}

// document mirrors the persisted blob. Pointers distinguish absent keys from
// zero values so each field can fall back to its default on its own.
type document struct {
	WorkDuration       *int    `json:"workDuration"`
	ShortBreakDuration *int    `json:"shortBreakDuration"`
	LongBreakDuration  *int    `json:"longBreakDuration"`
	LongBreakInterval  *int    `json:"longBreakInterval"`
	DailyGoal          *int    `json:"dailyGoal"`
	AutoStartBreaks    *bool   `json:"autoStartBreaks"`
	AutoStartWork      *bool   `json:"autoStartWork"`
	SoundEnabled       *bool   `json:"soundEnabled"`
	SoundVolume        *int    `json:"soundVolume"`
	NotificationSound  *string `json:"notificationSound"`
	ShowNotifications  *bool   `json:"showNotifications"`
}

// Decode parses a persisted settings blob on top of base. Unknown keys are
// dropped and fields holding out-of-range values keep the base value. A blob
// that is not a JSON object yields ErrCorrupt together with base.
func Decode(data []byte, base Settings) (Settings, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return base, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	s := base
	positive := func(dst *int, v *int) {
		if v != nil && *v > 0 {
			*dst = *v
		}
	}
	length := func(dst *int, v *int) {
		if v != nil && *v > 0 && *v <= MaxDurationMinutes {
			*dst = *v
		}
	}
	flag := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	length(&s.WorkDuration, doc.WorkDuration)
	length(&s.ShortBreakDuration, doc.ShortBreakDuration)
	length(&s.LongBreakDuration, doc.LongBreakDuration)
	positive(&s.LongBreakInterval, doc.LongBreakInterval)
	positive(&s.DailyGoal, doc.DailyGoal)
	flag(&s.AutoStartBreaks, doc.AutoStartBreaks)
	flag(&s.AutoStartWork, doc.AutoStartWork)
	flag(&s.SoundEnabled, doc.SoundEnabled)
	flag(&s.ShowNotifications, doc.ShowNotifications)
	if doc.SoundVolume != nil && *doc.SoundVolume >= 0 && *doc.SoundVolume <= 100 {
		s.SoundVolume = *doc.SoundVolume
	}
	if doc.NotificationSound != nil {
		if _, ok := soundFrequencies[*doc.NotificationSound]; ok {
			s.NotificationSound = *doc.NotificationSound
		}
	}
	return s, nil
}

// Encode serializes settings into the flat persisted blob.
func Encode(s Settings) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return data, nil
}
