// Package metrics exposes lock controller activity to Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/controller"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

type Metrics struct {
	registry *prometheus.Registry

	outcomes *prometheus.CounterVec
	state    *prometheus.GaugeVec
	pending  prometheus.Gauge

	readErrors   atomic.Uint64
	encodeErrors atomic.Uint64
}

// New registers the controller collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfidlock_outcomes_total",
			Help: "Resolved access attempts by outcome",
		}, []string{"outcome"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rfidlock_state",
			Help: "1 for the current controller state, 0 otherwise",
		}, []string{"state"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rfidlock_pending_packets",
			Help: "Decoded packets waiting in the queue",
		}),
	}

	readErrors := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "rfidlock_link_read_errors_total",
		Help: "Serial reads that failed or were not valid text",
	}, func() float64 { return float64(m.readErrors.Load()) })
	encodeErrors := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "rfidlock_link_encode_errors_total",
		Help: "Frames dropped for a bad marker or body",
	}, func() float64 { return float64(m.encodeErrors.Load()) })

	m.registry.MustRegister(
		m.outcomes,
		m.state,
		m.pending,
		readErrors,
		encodeErrors,
		collectors.NewGoCollector(),
	)
	for s := types.StateLocked; s <= types.StateDenied; s++ {
		m.state.WithLabelValues(s.String()).Set(0)
	}
	m.state.WithLabelValues(types.StateLocked.String()).Set(1)
	return m
}

// Observe is a controller.Observer.
func (m *Metrics) Observe(s controller.Snapshot) {
	for st := types.StateLocked; st <= types.StateDenied; st++ {
		v := 0.0
		if st == s.State {
			v = 1
		}
		m.state.WithLabelValues(st.String()).Set(v)
	}
	if counted(s) {
		m.outcomes.WithLabelValues(string(s.Outcome)).Inc()
	}
	m.UpdateLink(s.Counters, s.Pending)
}

// counted reports whether s is the one snapshot of a resolution. A failed
// code entry publishes DENIED and then the restored state with the same
// outcome; only the first counts.
func counted(s controller.Snapshot) bool {
	switch s.Outcome {
	case controller.OutcomeGranted, controller.OutcomeDenied, controller.OutcomeActuatorFault:
		return true
	case controller.OutcomeIncorrectCode, controller.OutcomeTooManyAttempts, controller.OutcomeTimedOut:
		return s.State == types.StateDenied
	default:
		return false
	}
}

// UpdateLink records the framer counters. Safe to call from any goroutine.
func (m *Metrics) UpdateLink(c types.Counters, pending int) {
	m.readErrors.Store(c.ReadErrors)
	m.encodeErrors.Store(c.EncodeErrors)
	m.pending.Set(float64(pending))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
