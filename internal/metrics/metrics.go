// Package metrics exposes poll loop counters for Prometheus. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	tracked       prometheus.Gauge
	announced     *prometheus.CounterVec
	fetchFailures prometheus.Counter
	notifications *prometheus.CounterVec
	cycleDuration prometheus.Summary
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.tracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "battle_notifier",
		Name:      "tracked_battles",
		Help:      "Upcoming battles currently tracked",
	})
	m.announced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "battle_notifier",
		Name:      "battles_announced_total",
		Help:      "Battles formatted for announcement",
	}, []string{"type"})
	m.fetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "battle_notifier",
		Name:      "fetch_failures_total",
		Help:      "Poll cycles skipped because the API could not be reached",
	})
	m.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "battle_notifier",
		Name:      "notifications_total",
		Help:      "Notification deliveries by notifier and result",
	}, []string{"notifier", "result"})
	m.cycleDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "battle_notifier",
		Name:      "cycle_duration_seconds",
		Help:      "Time spent in one poll cycle",
	})

	m.registry.MustRegister(m.tracked, m.announced, m.fetchFailures, m.notifications, m.cycleDuration)
	return m
}

func (m *Metrics) SetTracked(n int) {
	if m == nil {
		return
	}
	m.tracked.Set(float64(n))
}

func (m *Metrics) BattleAnnounced(battleType string) {
	if m == nil {
		return
	}
	m.announced.WithLabelValues(battleType).Inc()
}

func (m *Metrics) FetchFailed() {
	if m == nil {
		return
	}
	m.fetchFailures.Inc()
}

func (m *Metrics) NotificationSent(notifier string, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.notifications.WithLabelValues(notifier, result).Inc()
}

func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
