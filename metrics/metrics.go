// Package metrics exports drain session activity as Prometheus series.
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	drain.Run(r, drain.WithObserver(m.Observe))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/baxromumarov/drain"
)

const namespace = "drain"

// Metrics holds the collectors fed by [Metrics.Observe]. One Metrics may
// observe any number of concurrent sessions.
type Metrics struct {
	delivered      *prometheus.CounterVec
	retired        prometheus.Counter
	spurious       prometheus.Counter
	liveSlots      prometheus.Gauge
	sessions       prometheus.Counter
	aborted        prometheus.Counter
	activeSessions prometheus.Gauge
	handlerSeconds prometheus.Histogram
	sessionSeconds prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		delivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_delivered_total",
			Help:      "Messages handed to a slot handler.",
		}, []string{"slot"}),
		retired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_retired_total",
			Help:      "Slots observed closed and empty.",
		}),
		spurious: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spurious_wakes_total",
			Help:      "Wake-ups that found nothing to read.",
		}),
		liveSlots: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_slots",
			Help:      "Slots not yet retired across running sessions.",
		}),
		sessions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Drain sessions started.",
		}),
		aborted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_aborted_total",
			Help:      "Drain sessions that unwound on a panic before done.",
		}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Drain sessions currently running.",
		}),
		handlerSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_seconds",
			Help:      "Handler wall-clock time per message.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		sessionSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_seconds",
			Help:      "Wall-clock time from Run to done.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Observe records one event. Pass it to [drain.WithObserver].
func (m *Metrics) Observe(ev drain.Event) {
	switch ev.Kind {
	case drain.EventStarted:
		m.sessions.Inc()
		m.activeSessions.Inc()
		m.liveSlots.Add(float64(ev.Slots))
	case drain.EventDelivered:
		m.delivered.WithLabelValues(ev.Slot.Name).Inc()
		m.handlerSeconds.Observe(ev.Duration.Seconds())
	case drain.EventSpurious:
		m.spurious.Inc()
	case drain.EventRetired:
		m.retired.Inc()
		m.liveSlots.Dec()
	case drain.EventDone:
		m.activeSessions.Dec()
		m.sessionSeconds.Observe(ev.Duration.Seconds())
	case drain.EventAborted:
		m.aborted.Inc()
		m.activeSessions.Dec()
		m.liveSlots.Sub(float64(ev.Live))
	}
}
