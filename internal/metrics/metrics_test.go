package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CommandSent(control.KindMouseMove)
	m.CommandSent(control.KindMouseMove)
	m.CommandRejected(control.KindScroll, control.ReasonNotReady)
	m.Transition("connecting", "connected")

	if got := counterValue(t, m.commandsSent.WithLabelValues("mouse_move")); got != 2 {
		t.Errorf("mouse_move sent = %v, want 2", got)
	}
	if got := counterValue(t, m.commandsRejected.WithLabelValues("scroll", "not_ready")); got != 1 {
		t.Errorf("scroll rejected = %v, want 1", got)
	}
	if got := gaugeValue(t, m.connected); got != 1 {
		t.Errorf("connected gauge = %v, want 1", got)
	}

	m.Transition("connected", "disconnected")
	if got := gaugeValue(t, m.connected); got != 0 {
		t.Errorf("connected gauge = %v, want 0", got)
	}
}

func TestSignalingHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SignalingFinished(300*time.Millisecond, nil)
	m.SignalingFinished(5*time.Second, errors.New("timeout"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var samples uint64
	for _, f := range families {
		if f.GetName() != "spacelink_signaling_duration_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			samples += metric.GetHistogram().GetSampleCount()
		}
	}
	if samples != 2 {
		t.Errorf("histogram samples = %d, want 2", samples)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CommandSent(control.KindKeyPress)
	m.CommandRejected(control.KindKeyPress, "x")
	m.Transition("a", "b")
	m.SignalingFinished(time.Second, nil)
}
