package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pomodoro/internal/event"
	"pomodoro/internal/session"
)

// Metrics holds the daemon's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	SessionsCompleted *prometheus.CounterVec
	FocusMinutes      prometheus.Counter
	TimeRemaining     prometheus.Gauge
	Running           prometheus.Gauge
	Degraded          prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pomodoro_sessions_completed_total",
			Help: "Sessions completed, by kind and whether they were skipped.",
		}, []string{"kind", "skipped"}),
		FocusMinutes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pomodoro_focus_minutes_total",
			Help: "Focus minutes credited by completed work sessions.",
		}),
		TimeRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pomodoro_time_remaining_seconds",
			Help: "Time left in the current session.",
		}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pomodoro_running",
			Help: "1 while the timer is counting down.",
		}),
		Degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pomodoro_persistence_degraded",
			Help: "1 once persistence failed and state is kept in memory only.",
		}),
	}
	m.registry.MustRegister(m.SessionsCompleted, m.FocusMinutes, m.TimeRemaining, m.Running, m.Degraded)
	return m
}

// ObserveCompletion counts a finished session.
func (m *Metrics) ObserveCompletion(completed event.SessionCompleted) {
	m.SessionsCompleted.WithLabelValues(string(completed.Kind), strconv.FormatBool(completed.Skipped)).Inc()
	if completed.Kind == event.KindWork {
		m.FocusMinutes.Add(float64(int(completed.Duration / time.Minute)))
	}
}

// ObserveState refreshes the gauges from a timer snapshot.
func (m *Metrics) ObserveState(state session.TimerState) {
	m.TimeRemaining.Set(state.TimeRemaining.Seconds())
	if state.IsRunning {
		m.Running.Set(1)
	} else {
		m.Running.Set(0)
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down metrics server: %v", err)
		}
	}()

	log.Printf("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
