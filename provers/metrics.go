package relayer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects proof and key-cache counters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	proofs        *prometheus.CounterVec
	keyLookups    *prometheus.CounterVec
	proofDuration prometheus.Histogram
	inFlight      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		proofs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "knights",
				Subsystem: "prover",
				Name:      "proofs_total",
				Help:      "Proof requests by result",
			},
			[]string{"result"},
		),
		keyLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "knights",
				Subsystem: "prover",
				Name:      "proving_key_lookups_total",
				Help:      "Proving key cache lookups by result",
			},
			[]string{"result"},
		),
		proofDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "knights",
				Subsystem: "prover",
				Name:      "request_duration_seconds",
				Help:      "Time from request receipt to response",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "knights",
				Subsystem: "prover",
				Name:      "requests_in_flight",
				Help:      "1 while a proof request is being processed",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.proofs, m.keyLookups, m.proofDuration, m.inFlight)
	}
	return m
}

func (m *Metrics) observeRequest(start time.Time, failed bool) {
	if m == nil {
		return
	}
	result := "success"
	if failed {
		result = "failure"
	}
	m.proofs.WithLabelValues(result).Inc()
	m.proofDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) keyLookup(result string) {
	if m == nil {
		return
	}
	m.keyLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) setInFlight(busy bool) {
	if m == nil {
		return
	}
	if busy {
		m.inFlight.Set(1)
		return
	}
	m.inFlight.Set(0)
}
