package metrics

import (
	"fmt"
	"net/http"

	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/downfa11-org/sharefetch/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(RecordsDelivered, Acknowledgements, AbortedBatchesSkipped, FetchErrors)
	prometheus.MustRegister(PollLatency, PollRecordsPerSec, BufferedFetches)
}

func StartMetricsServer(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", port)
		util.Info("[METRICS] Prometheus exporter listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			util.Error("[METRICS] Failed to start metrics server: %v", err)
		}
	}()
}

// ObservePoll records the latency and throughput of one poll.
func ObservePoll(records int, elapsedSeconds float64) {
	PollLatency.Observe(elapsedSeconds)
	if elapsedSeconds > 0 {
		PollRecordsPerSec.Set(float64(records) / elapsedSeconds)
	}
}

func RecordAcknowledgements(topic string, acks []types.Acknowledgement) {
	for _, ack := range acks {
		Acknowledgements.WithLabelValues(topic, ack.Type.String()).Inc()
	}
}

// RecordError counts err under its kind. Nil errors are ignored.
func RecordError(topic string, err error) {
	if err == nil {
		return
	}
	FetchErrors.WithLabelValues(topic, types.ErrorKind(err)).Inc()
}
