package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"pomodoro/internal/config"
	"pomodoro/internal/event"
	"pomodoro/internal/ipc"
	"pomodoro/internal/metrics"
	"pomodoro/internal/notify"
	"pomodoro/internal/session"
	"pomodoro/internal/settings"
	"pomodoro/internal/stats"
	"pomodoro/internal/storage"
	"pomodoro/internal/storage/file"
	"pomodoro/internal/storage/memory"

	sqlitestore "pomodoro/internal/storage/sqlite"
)

const (
	storeTimeout  = 2 * time.Second
	notifyTimeout = 5 * time.Second
)

type App struct {
	cfg     *config.Config
	store   *storage.Fallback
	engine  *session.Engine
	tracker *stats.Tracker
	metrics *metrics.Metrics

	notifyMu   sync.Mutex
	dispatcher *notify.Dispatcher

	// --- Socket Handling ---
	socketPath string
	listener   *net.UnixListener

	completions chan event.SessionCompleted

	mirrorMu  sync.Mutex
	mirrorDay string // date of the today-mirror last pushed into the engine

	wg     conc.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewApp(cfg *config.Config) (*App, error) {
	primary, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, primary, newDispatcher(cfg.Notifications, nil), time.Now)
}

func newApp(cfg *config.Config, primary storage.Store, dispatcher *notify.Dispatcher, now func() time.Time) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:         cfg,
		metrics:     metrics.New(),
		dispatcher:  dispatcher,
		socketPath:  cfg.SocketPath,
		completions: make(chan event.SessionCompleted, 16),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Initialize Storage
	a.store = storage.NewFallback(primary, memory.NewStore())
	a.store.OnDegrade(func(err error) {
		a.metrics.Degraded.Set(1)
	})
	initCtx, initCancel := context.WithTimeout(ctx, storeTimeout)
	defer initCancel()
	if err := a.store.Init(initCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a.tracker = stats.NewTracker(a.store, stats.Options{Now: now})
	if err := a.tracker.Load(initCtx); err != nil {
		log.Printf("Warning: %v. Starting with empty statistics.", err)
	}

	engine, err := session.New(a.loadSettings(initCtx), session.Options{
		Now:            now,
		AutoStartDelay: cfg.AutoStartDelay,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create session engine: %w", err)
	}
	a.engine = engine
	a.engine.OnSessionCompleted(a.onSessionCompleted)
	a.refreshTodayMirror(now())

	return a, nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return sqlitestore.NewSQLiteStore(cfg.DatabasePath), nil
	case config.StoreFile:
		return file.NewFileStore(afero.NewOsFs(), cfg.DataDir), nil
	case config.StoreMemory:
		log.Println("Warning: memory store selected, nothing will survive a restart.")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// newDispatcher builds the notifier set for the given toggles, reusing the
// desktop connection of prev when there is one.
func newDispatcher(nc config.NotificationConfig, prev *notify.Dispatcher) *notify.Dispatcher {
	d := &notify.Dispatcher{}
	if nc.Desktop {
		if prev != nil && prev.Desktop != nil {
			d.Desktop = prev.Desktop
		} else if bus, err := notify.NewDBus(); err != nil {
			log.Printf("Warning: desktop notifications disabled: %v", err)
		} else {
			d.Desktop = bus
		}
	}
	if nc.Bell {
		d.Sound = notify.NewBell(os.Stdout)
	}
	return d
}

// loadSettings reads the persisted settings, falling back to the configured
// defaults when they are missing or unreadable.
func (a *App) loadSettings(ctx context.Context) settings.Settings {
	defaults := a.cfg.InitialSettings()
	data, err := a.store.Load(ctx, storage.KeySettings)
	if errors.Is(err, storage.ErrNotFound) {
		return defaults
	}
	if err != nil {
		log.Printf("Warning: failed to load settings: %v. Using defaults.", err)
		return defaults
	}
	s, err := settings.Decode(data, defaults)
	if err != nil {
		log.Printf("Warning: discarding stored settings: %v", err)
		return defaults
	}
	return s
}

func (a *App) saveSettings(s settings.Settings) {
	data, err := settings.Encode(s)
	if err != nil {
		log.Printf("Warning: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(a.ctx, storeTimeout)
	defer cancel()
	if err := a.store.Save(ctx, storage.KeySettings, data); err != nil {
		log.Printf("Warning: failed to save settings: %v", err)
	}
}

// onSessionCompleted runs on the goroutine that drove the engine. Statistics
// are written synchronously; notifications are queued for deliverNotifications.
func (a *App) onSessionCompleted(completed event.SessionCompleted) {
	log.Printf("Session complete: %s (%s, skipped=%t), next: %s",
		completed.Kind, formatDuration(completed.Duration), completed.Skipped, completed.Next)
	a.metrics.ObserveCompletion(completed)

	if completed.Kind == event.KindWork {
		ctx, cancel := context.WithTimeout(a.ctx, storeTimeout)
		record, err := a.tracker.RecordCompletedWorkSession(ctx, completed.StartedAt, completed.EndedAt)
		cancel()
		if err != nil {
			log.Printf("Warning: failed to save statistics: %v", err)
		}
		log.Printf("Pomodoros today: %d (%d min)", record.CompletedPomodoros, record.TotalFocusTimeMin)
		a.refreshTodayMirror(completed.EndedAt)
	}

	select {
	case a.completions <- completed:
	default:
		log.Printf("Warning: notification queue full, dropping %s notification", completed.Kind)
	}
}

func (a *App) refreshTodayMirror(now time.Time) {
	a.mirrorMu.Lock()
	defer a.mirrorMu.Unlock()
	today := a.tracker.Today()
	a.engine.SetTodayMirror(today.CompletedPomodoros, today.TotalFocusTimeMin, a.tracker.CurrentStreak())
	a.mirrorDay = now.Format("2006-01-02")
}

// setupSocket checks for existing socket and creates the listener
func (a *App) setupSocket() error {
	// Check if socket file exists and try connecting
	if _, err := os.Stat(a.socketPath); err == nil {
		conn, err := net.DialTimeout("unix", a.socketPath, 1*time.Second)
		if err == nil {
			conn.Close()
			return fmt.Errorf("socket %s already active, another instance might be running", a.socketPath)
		}
		log.Printf("Stale socket file found at %s, removing.", a.socketPath)
		if err := os.Remove(a.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket file %s: %w", a.socketPath, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking socket file %s: %w", a.socketPath, err)
	}

	addr, err := net.ResolveUnixAddr("unix", a.socketPath)
	if err != nil {
		return fmt.Errorf("failed to resolve unix addr %s: %w", a.socketPath, err)
	}

	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", a.socketPath, err)
	}
	if err := os.Chmod(a.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set permissions on socket %s: %w", a.socketPath, err)
	}

	a.listener = listener
	log.Printf("Listening for commands on %s", a.socketPath)
	return nil
}

// listenForCommands accepts connections and handles them
func (a *App) listenForCommands() {
	defer log.Println("Socket command listener stopped.")

	if a.listener == nil {
		log.Println("Error: Socket listener not initialized.")
		return
	}

	for {
		conn, err := a.listener.AcceptUnix()
		if err != nil {
			select {
			case <-a.ctx.Done():
				return // Expected error on shutdown
			default:
				log.Printf("Failed to accept connection: %v", err)
				if errors.Is(err, net.ErrClosed) {
					return
				}
				time.Sleep(100 * time.Millisecond)
			}
			continue
		}
		a.wg.Go(func() { a.handleConnection(conn) })
	}
}

// handleConnection reads command, processes it, and sends response
func (a *App) handleConnection(conn *net.UnixConn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var cmd ipc.Command
	if err := decoder.Decode(&cmd); err != nil {
		if err != io.EOF {
			log.Printf("Failed to decode command: %v", err)
		}
		_ = encoder.Encode(ipc.Response{Success: false, Message: "Failed to decode command: " + err.Error()})
		return
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	log.Printf("Received command: %s", cmd.Name)

	response := a.processCommand(cmd)

	if err := encoder.Encode(response); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// Run starts every daemon component and blocks until the app is stopped.
func (a *App) Run() error {
	defer a.cleanup()

	log.Println("Starting Pomodoro daemon...")
	s := a.engine.Settings()
	log.Printf("Settings: work %dm, short break %dm, long break %dm every %d, goal %d",
		s.WorkDuration, s.ShortBreakDuration, s.LongBreakDuration, s.LongBreakInterval, s.DailyGoal)

	if err := a.setupSocket(); err != nil {
		return fmt.Errorf("failed to set up socket: %w", err)
	}

	a.handleSignals()

	a.wg.Go(a.runScheduler)
	a.wg.Go(a.deliverNotifications)
	a.wg.Go(a.listenForCommands)
	if addr := a.cfg.MetricsAddr; addr != "" {
		a.wg.Go(func() {
			if err := a.metrics.Serve(a.ctx, addr); err != nil {
				log.Printf("Warning: %v", err)
			}
		})
	}

	log.Println("Pomodoro daemon running. Send commands via pomodoro-cli or socket.")
	<-a.ctx.Done()

	log.Println("Shutdown signal received, waiting for components...")

	// Close the listener *before* waiting for goroutines to allow accept() to return
	if a.listener != nil {
		log.Println("Closing command socket listener...")
		if err := a.listener.Close(); err != nil {
			log.Printf("Error closing socket listener: %v", err)
		}
	}

	waitChan := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waitChan)
	}()

	select {
	case <-waitChan:
		log.Println("All application goroutines finished.")
	case <-time.After(5 * time.Second):
		log.Println("Warning: Timeout waiting for application goroutines to stop.")
	}

	log.Println("Pomodoro daemon finished.")
	return nil
}

// Stop asks a running app to shut down.
func (a *App) Stop() {
	a.cancel()
}

// runScheduler drives the engine from the wall clock.
func (a *App) runScheduler() {
	defer log.Println("Scheduler stopped.")

	ticker := time.NewTicker(a.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case now := <-ticker.C:
			a.tick(now)
		}
	}
}

func (a *App) tick(now time.Time) {
	a.engine.Tick(now)
	a.mirrorMu.Lock()
	stale := now.Format("2006-01-02") != a.mirrorDay
	a.mirrorMu.Unlock()
	if stale {
		a.refreshTodayMirror(now)
	}
	a.metrics.ObserveState(a.engine.Snapshot())
}

// deliverNotifications sends queued completions to the notifiers so a slow
// notification service never holds up the scheduler.
func (a *App) deliverNotifications() {
	defer log.Println("Notifier stopped.")

	for {
		select {
		case <-a.ctx.Done():
			return
		case completed := <-a.completions:
			a.notifyMu.Lock()
			d := a.dispatcher
			a.notifyMu.Unlock()

			ctx, cancel := context.WithTimeout(a.ctx, notifyTimeout)
			if err := d.SessionCompleted(ctx, completed, a.engine.Settings()); err != nil {
				log.Printf("Warning: notification failed: %v", err)
			}
			cancel()
		}
	}
}

// ApplyConfig takes a reloaded configuration. Notification toggles apply
// immediately; everything else is picked up on the next start.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.notifyMu.Lock()
	a.dispatcher = newDispatcher(cfg.Notifications, a.dispatcher)
	a.notifyMu.Unlock()
	log.Printf("Notifications: desktop=%t bell=%t", cfg.Notifications.Desktop, cfg.Notifications.Bell)

	if cfg.Store != a.cfg.Store || cfg.DatabasePath != a.cfg.DatabasePath || cfg.DataDir != a.cfg.DataDir ||
		cfg.SocketPath != a.cfg.SocketPath || cfg.TickInterval != a.cfg.TickInterval ||
		cfg.AutoStartDelay != a.cfg.AutoStartDelay || cfg.MetricsAddr != a.cfg.MetricsAddr {
		log.Println("Warning: storage, socket, timing and metrics changes take effect after a restart.")
	}
}

func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal: %v. Initiating shutdown...", sig)
			a.cancel()
		case <-a.ctx.Done():
		}
		signal.Stop(sigChan)
	}()
}

func (a *App) cleanup() {
	log.Println("Running cleanup...")
	a.cancel()

	var err error
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
	}
	if a.listener != nil {
		if _, statErr := os.Stat(a.socketPath); statErr == nil {
			log.Printf("Removing socket file: %s", a.socketPath)
			err = multierr.Append(err, os.Remove(a.socketPath))
		}
	}
	if err != nil {
		log.Printf("Warning: cleanup: %v", err)
	}

	log.Println("Cleanup finished.")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
