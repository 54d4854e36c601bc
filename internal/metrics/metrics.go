package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qst_tracking_deliveries_total",
			Help: "Total number of beacon attempts",
		},
		[]string{"status"},
	)

	eventsDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qst_tracking_events_delivered_total",
			Help: "Total number of events accepted by the collector",
		},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qst_tracking_delivery_duration_seconds",
			Help:    "Beacon round-trip latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	retriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qst_tracking_retries_total",
			Help: "Total number of scheduled beacon retries",
		},
	)

	batchSplitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qst_tracking_batch_splits_total",
			Help: "Total number of batches split because the report URL was too long",
		},
	)

	eventsPersistedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qst_tracking_events_persisted_total",
			Help: "Total number of events written to the durable queue",
		},
	)

	eventsDrainedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qst_tracking_events_drained_total",
			Help: "Total number of events drained from the durable queue for redelivery",
		},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qst_tracking_queue_depth",
			Help: "Number of events currently held in the durable queue",
		},
	)

	inFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qst_tracking_deliveries_in_flight",
			Help: "Number of beacon sends currently on the wire",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordDelivery(ok bool, events int, duration time.Duration) {
	status := "success"
	if !ok {
		status = "failure"
	}
	deliveriesTotal.WithLabelValues(status).Inc()
	deliveryDuration.WithLabelValues(status).Observe(duration.Seconds())
	if ok {
		eventsDeliveredTotal.Add(float64(events))
	}
}

func RecordRetry() {
	retriesTotal.Inc()
}

func RecordSplit() {
	batchSplitsTotal.Inc()
}

func RecordPersisted(n int) {
	eventsPersistedTotal.Add(float64(n))
}

func RecordDrained(n int) {
	eventsDrainedTotal.Add(float64(n))
}

func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

func IncrementInFlight() {
	inFlight.Inc()
}

func DecrementInFlight() {
	inFlight.Dec()
}
