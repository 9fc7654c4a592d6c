package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spacelink"

// Metrics records client-side counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	commandsSent      *prometheus.CounterVec
	commandsRejected  *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	signalingDuration *prometheus.HistogramVec
	connected         prometheus.Gauge
}

// New registers the client metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Commands accepted by the control channel.",
		}, []string{"kind"}),
		commandsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Commands dropped before reaching the control channel.",
		}, []string{"kind", "reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session state transitions.",
		}, []string{"from", "to"}),
		signalingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "signaling_duration_seconds",
			Help:      "Time from connect intent to answer submission.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_connected",
			Help:      "1 while the session is connected.",
		}),
	}
	reg.MustRegister(m.commandsSent, m.commandsRejected, m.transitions, m.signalingDuration, m.connected)
	return m
}

func (m *Metrics) CommandSent(kind control.Kind) {
	if m == nil {
		return
	}
	m.commandsSent.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) CommandRejected(kind control.Kind, reason string) {
	if m == nil {
		return
	}
	m.commandsRejected.WithLabelValues(string(kind), reason).Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
	if to == "connected" {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

func (m *Metrics) SignalingFinished(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.signalingDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Serve exposes reg on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg prometheus.Gatherer, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", "error", err)
		}
	}()
}
