package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bid submission results recorded by ObserveBid
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	bidsTotal        *prometheus.CounterVec
	withdrawalsTotal prometheus.Counter
	transitionsTotal *prometheus.CounterVec
	eventsPublished  prometheus.Counter
	eventsDropped    prometheus.Counter
	rankDuration     prometheus.Histogram

	registerOnce sync.Once
}

// New creates the collectors and registers them with registry. A nil
// registry yields working but unregistered collectors.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{}
	m.register(registry)
	return m
}

func (m *Metrics) register(registry prometheus.Registerer) {
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.bidsTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bidwar_bids_total",
			Help: "Total number of bid submissions by result",
		}, []string{"result"})

		m.withdrawalsTotal = factory.NewCounter(prometheus.CounterOpts{
			Name: "bidwar_bid_withdrawals_total",
			Help: "Total number of withdrawn bids",
		})

		m.transitionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bidwar_auction_transitions_total",
			Help: "Total number of auction state transitions by target state",
		}, []string{"state"})

		m.eventsPublished = factory.NewCounter(prometheus.CounterOpts{
			Name: "bidwar_events_published_total",
			Help: "Total number of events delivered to subscribers",
		})

		m.eventsDropped = factory.NewCounter(prometheus.CounterOpts{
			Name: "bidwar_events_dropped_total",
			Help: "Total number of events dropped for slow subscribers",
		})

		m.rankDuration = factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bidwar_rank_recompute_seconds",
			Help:    "Time spent recomputing a project ranking",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		})
	})
}

// ObserveBid counts one submission with the given result label
func (m *Metrics) ObserveBid(result string) {
	if m == nil {
		return
	}
	m.bidsTotal.WithLabelValues(result).Inc()
}

// IncWithdrawal counts one withdrawn bid
func (m *Metrics) IncWithdrawal() {
	if m == nil {
		return
	}
	m.withdrawalsTotal.Inc()
}

// IncTransition counts one transition into state
func (m *Metrics) IncTransition(state string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(state).Inc()
}

// IncEventPublished counts one delivered event
func (m *Metrics) IncEventPublished() {
	if m == nil {
		return
	}
	m.eventsPublished.Inc()
}

// IncEventDropped counts one dropped event
func (m *Metrics) IncEventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

// ObserveRank records how long a ranking recomputation took
func (m *Metrics) ObserveRank(d time.Duration) {
	if m == nil {
		return
	}
	m.rankDuration.Observe(d.Seconds())
}
