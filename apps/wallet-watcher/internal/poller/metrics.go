package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "watcher_cycles_total", Help: "Poll cycles by result"},
		[]string{"status"},
	)
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{Name: "watcher_cycle_duration_seconds", Help: "Poll cycle latency", Buckets: prometheus.DefBuckets},
	)
	referencesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "watcher_references_total", Help: "References handled by outcome"},
		[]string{"outcome"},
	)
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "watcher_events_total", Help: "Trade events emitted"},
		[]string{"side"},
	)
	checkpointSlot = promauto.NewGaugeVec(
		prometheus.GaugeOpts{Name: "watcher_checkpoint_slot", Help: "Slot of the in-memory checkpoint"},
		[]string{"address"},
	)
	checkpointWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{Name: "watcher_checkpoint_write_errors_total", Help: "Failed checkpoint writes"},
	)
)
