package config

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"pomodoro/internal/settings"
)

const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// PomodoroConfig seeds the user settings when none have been saved yet.
type PomodoroConfig struct {
	WorkMinutes       int  `mapstructure:"work_minutes"`
	ShortBreakMinutes int  `mapstructure:"short_break_minutes"`
	LongBreakMinutes  int  `mapstructure:"long_break_minutes"`
	LongBreakInterval int  `mapstructure:"long_break_interval"`
	DailyGoal         int  `mapstructure:"daily_goal"`
	AutoStartBreaks   bool `mapstructure:"auto_start_breaks"`
	AutoStartWork     bool `mapstructure:"auto_start_work"`
}

type NotificationConfig struct {
	Desktop bool `mapstructure:"desktop"` // org.freedesktop.Notifications over D-Bus
	Bell    bool `mapstructure:"bell"`    // terminal bell on stdout
}

type Config struct {
	DataDir        string             `mapstructure:"data_dir"`
	Store          string             `mapstructure:"store"` // "sqlite", "file" or "memory"
	DatabasePath   string             `mapstructure:"database_path"`
	SocketPath     string             `mapstructure:"socket_path"`
	TickInterval   time.Duration      `mapstructure:"tick_interval"`
	AutoStartDelay time.Duration      `mapstructure:"auto_start_delay"`
	MetricsAddr    string             `mapstructure:"metrics_addr"` // empty disables the endpoint
	Notifications  NotificationConfig `mapstructure:"notifications"`
	Pomodoro       PomodoroConfig     `mapstructure:"pomodoro"`
}

// DefaultSocketPath is where the daemon listens unless configured otherwise.
var DefaultSocketPath = filepath.Join(os.TempDir(), "pomodoro.sock")

func LoadConfig(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to read .env: %v", err)
	}

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/pomodoro")
		viper.AddConfigPath("/etc/pomodoro/")
	}

	viper.SetEnvPrefix("POMODORO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("store", StoreSQLite)
	viper.SetDefault("database_path", "")
	viper.SetDefault("socket_path", DefaultSocketPath)
	viper.SetDefault("tick_interval", time.Second)
	viper.SetDefault("auto_start_delay", 2*time.Second)
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("notifications.desktop", true)
	viper.SetDefault("notifications.bell", false)

	d := settings.Defaults()
	viper.SetDefault("pomodoro.work_minutes", d.WorkDuration)
	viper.SetDefault("pomodoro.short_break_minutes", d.ShortBreakDuration)
	viper.SetDefault("pomodoro.long_break_minutes", d.LongBreakDuration)
	viper.SetDefault("pomodoro.long_break_interval", d.LongBreakInterval)
	viper.SetDefault("pomodoro.daily_goal", d.DailyGoal)
	viper.SetDefault("pomodoro.auto_start_breaks", d.AutoStartBreaks)
	viper.SetDefault("pomodoro.auto_start_work", d.AutoStartWork)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults.")
		} else {
			return nil, err
		}
	}

	cfg, err := decode()
	if err != nil {
		return nil, err
	}
	log.Printf("Configuration loaded: %+v", *cfg)
	return cfg, nil
}

// WatchConfig calls onChange with the reloaded configuration every time the
// config file is written.
func WatchConfig(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed (%s): %s", e.Op, e.Name)
		cfg, err := decode()
		if err != nil {
			log.Printf("Warning: ignoring invalid config change: %v", err)
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

func decode() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.sanitize()
	return &cfg, nil
}

func (c *Config) sanitize() {
	if c.TickInterval < 100*time.Millisecond {
		log.Printf("Warning: tick_interval %s too low, setting to 1s", c.TickInterval)
		c.TickInterval = time.Second
	}
	if c.AutoStartDelay <= 0 {
		log.Printf("Warning: auto_start_delay must be positive, setting to 2s")
		c.AutoStartDelay = 2 * time.Second
	}
	switch c.Store {
	case StoreSQLite, StoreFile, StoreMemory:
	default:
		log.Printf("Warning: invalid store '%s', defaulting to '%s'", c.Store, StoreSQLite)
		c.Store = StoreSQLite
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "pomodoro.db")
	}
	if c.SocketPath == "" {
		c.SocketPath = DefaultSocketPath
	}
}

// InitialSettings turns the pomodoro section into user settings. Values that
// fail validation fall back to the factory defaults.
func (c *Config) InitialSettings() settings.Settings {
	s := settings.Defaults()
	p := c.Pomodoro
	s.WorkDuration = p.WorkMinutes
	s.ShortBreakDuration = p.ShortBreakMinutes
	s.LongBreakDuration = p.LongBreakMinutes
	s.LongBreakInterval = p.LongBreakInterval
	s.DailyGoal = p.DailyGoal
	s.AutoStartBreaks = p.AutoStartBreaks
	s.AutoStartWork = p.AutoStartWork
	if err := s.Validate(); err != nil {
		log.Printf("Warning: pomodoro section rejected, using factory defaults: %v", err)
		return settings.Defaults()
	}
	return s
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "pomodoro")
}
