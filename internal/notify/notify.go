// Package notify tells the user that a session has ended. Delivery is best
// effort: failures are reported to the caller but never affect the timer.
package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/godbus/dbus/v5"
	"go.uber.org/multierr"

	"pomodoro/internal/event"
	"pomodoro/internal/settings"
)

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, n event.Notification) error
}

// MessageFor builds the notification for a completed session.
func MessageFor(completed event.SessionCompleted) event.Notification {
	if completed.Kind == event.KindWork {
		return event.Notification{
			Title:   "Work session complete",
			Message: "Work session complete! Time for a break.",
			Kind:    completed.Kind,
		}
	}
	return event.Notification{
		Title:   fmt.Sprintf("%s complete", completed.Kind.Label()),
		Message: "Break is over. Back to work!",
		Kind:    completed.Kind,
	}
}

// Dispatcher applies the user's sound and notification settings.
type Dispatcher struct {
	Desktop Notifier // nil when no desktop notification service is available
	Sound   Notifier
}

func (d *Dispatcher) SessionCompleted(ctx context.Context, completed event.SessionCompleted, s settings.Settings) error {
	n := MessageFor(completed)
	log.Printf("Notification: [%s] %s", n.Title, n.Message)

	var errs error
	if s.ShowNotifications && d.Desktop != nil {
		errs = multierr.Append(errs, d.Desktop.Notify(ctx, n))
	}
	if s.SoundEnabled && s.SoundVolume > 0 && d.Sound != nil {
		log.Printf("Playing %s tone (%d Hz, volume %d%%)", s.NotificationSound, s.SoundFrequency(), s.SoundVolume)
		errs = multierr.Append(errs, d.Sound.Notify(ctx, n))
	}
	return errs
}

// Bell rings the terminal bell on w.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Notify(ctx context.Context, n event.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.w, "\a"); err != nil {
		return fmt.Errorf("ring bell: %w", err)
	}
	return nil
}

const (
	notificationsService   = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications.Notify"
	notificationTimeoutMs  = 5000
)

// DBus posts desktop notifications through org.freedesktop.Notifications.
// Each new notification replaces the previous one.
type DBus struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	lastID uint32
}

// NewDBus connects to the shared session bus. The connection is owned by
// godbus and must not be closed here.
func NewDBus() (*DBus, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &DBus{conn: conn}, nil
}

func (d *DBus) Notify(ctx context.Context, n event.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj := d.conn.Object(notificationsService, dbus.ObjectPath(notificationsPath))
	call := obj.CallWithContext(ctx, notificationsInterface, 0,
		"pomodoro", d.lastID, "", n.Title, n.Message,
		[]string{}, map[string]dbus.Variant{}, int32(notificationTimeoutMs))
	if call.Err != nil {
		return fmt.Errorf("desktop notification: %w", call.Err)
	}
	if err := call.Store(&d.lastID); err != nil {
		return fmt.Errorf("desktop notification id: %w", err)
	}
	return nil
}
