package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomodoro/internal/settings"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig(writeConfig(t, "data_dir: /var/lib/pomodoro\n"))
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "/var/lib/pomodoro/pomodoro.db", cfg.DatabasePath)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.AutoStartDelay)
	assert.True(t, cfg.Notifications.Desktop)
	assert.Equal(t, settings.Defaults(), cfg.InitialSettings())
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfig(t, `
store: file
tick_interval: 500ms
auto_start_delay: 5s
metrics_addr: 127.0.0.1:9464
notifications:
  desktop: false
  bell: true
pomodoro:
  work_minutes: 50
  short_break_minutes: 10
  auto_start_work: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 5*time.Second, cfg.AutoStartDelay)
	assert.Equal(t, "127.0.0.1:9464", cfg.MetricsAddr)
	assert.False(t, cfg.Notifications.Desktop)
	assert.True(t, cfg.Notifications.Bell)

	s := cfg.InitialSettings()
	assert.Equal(t, 50, s.WorkDuration)
	assert.Equal(t, 10, s.ShortBreakDuration)
	assert.Equal(t, 15, s.LongBreakDuration)
	assert.True(t, s.AutoStartWork)
}

func TestLoadConfigSanitizes(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig(writeConfig(t, "store: redis\ntick_interval: 1ms\nauto_start_delay: 0s\n"))
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.AutoStartDelay)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("POMODORO_STORE", "memory")
	t.Setenv("POMODORO_POMODORO_DAILY_GOAL", "12")

	cfg, err := LoadConfig(writeConfig(t, "store: file\n"))
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 12, cfg.InitialSettings().DailyGoal)
}

func TestInitialSettingsRejectsInvalidSection(t *testing.T) {
	cfg := &Config{Pomodoro: PomodoroConfig{WorkMinutes: 0, ShortBreakMinutes: 5, LongBreakMinutes: 15, LongBreakInterval: 4, DailyGoal: 8}}
	assert.Equal(t, settings.Defaults(), cfg.InitialSettings())
}
