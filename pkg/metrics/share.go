package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RecordsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "share_records_delivered_total",
			Help: "Total number of records handed to the application",
		},
		[]string{"topic"},
	)

	Acknowledgements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "share_acknowledgements_total",
			Help: "Total number of acknowledgement intents emitted per type",
		},
		[]string{"topic", "type"}, // ACCEPT, RELEASE, REJECT, GAP
	)

	AbortedBatchesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "share_aborted_batches_skipped_total",
			Help: "Total number of transactional batches skipped because their transaction aborted",
		},
		[]string{"topic"},
	)

	FetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "share_fetch_errors_total",
			Help: "Total number of errors surfaced while reconciling fetched data",
		},
		[]string{"topic", "kind"},
	)

	PollLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "share_poll_duration_seconds",
		Help:    "Histogram of time spent collecting one poll's worth of records",
		Buckets: prometheus.DefBuckets,
	})

	PollRecordsPerSec = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "share_poll_records_per_second",
		Help: "Record throughput of the most recent poll",
	})

	BufferedFetches = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "share_buffered_fetches",
		Help: "Current number of completed fetches waiting in the fetch buffer",
	})
)
