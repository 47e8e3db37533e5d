package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request handling time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	relayActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_actions_total",
			Help: "Relay actions processed, by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	relayBroadcastFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_broadcast_fanout",
			Help:    "Recipients per broadcast-message action",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		},
	)

	relayCheckedMessages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_checked_messages",
			Help:    "Messages returned per check-messages action",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	signalActivePairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_active_connections",
			Help: "Active peer-channel websocket connections",
		},
	)
)

func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

func RecordRelayAction(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	relayActionsTotal.WithLabelValues(action, outcome).Inc()
}

func ObserveBroadcastFanout(recipients int) {
	relayBroadcastFanout.Observe(float64(recipients))
}

func ObserveCheckedMessages(count int) {
	relayCheckedMessages.Observe(float64(count))
}

func IncrementSignalConnections() {
	signalActivePairs.Inc()
}

func DecrementSignalConnections() {
	signalActivePairs.Dec()
}
