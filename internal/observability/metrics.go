package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatclient_connection_status",
			Help: "Current channel connection status, 1 for the active status.",
		},
		[]string{"status"},
	)
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_frames_total",
			Help: "Total number of inbound channel frames by topic.",
		},
		[]string{"topic"},
	)
	framesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_frames_dropped_total",
			Help: "Total number of inbound frames dropped before reaching a handler.",
		},
		[]string{"reason"},
	)
	resubscribesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_resubscribes_total",
			Help: "Total number of subscriptions restored by the registry.",
		},
		[]string{"trigger"},
	)
	reconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_reconnects_total",
			Help: "Total number of reconnect attempts by result.",
		},
		[]string{"result"},
	)
	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_signals_total",
			Help: "Total number of decoded channel signals by kind.",
		},
		[]string{"kind"},
	)
	sendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatclient_send_failures_total",
			Help: "Total number of chat messages that could not be published.",
		},
	)
	swipesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_swipes_total",
			Help: "Total number of committed swipe decisions by action and submit result.",
		},
		[]string{"action", "result"},
	)
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatclient_api_request_duration_seconds",
			Help:    "REST call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		connectionStatus,
		framesTotal,
		framesDroppedTotal,
		resubscribesTotal,
		reconnectsTotal,
		signalsTotal,
		sendFailuresTotal,
		swipesTotal,
		apiRequestDuration,
	)
}

func SetConnectionStatus(status string) {
	connectionStatus.Reset()
	connectionStatus.WithLabelValues(status).Set(1)
}

func IncFrame(topic string) {
	framesTotal.WithLabelValues(topic).Inc()
}

func IncDroppedFrame(reason string) {
	framesDroppedTotal.WithLabelValues(reason).Inc()
}

func IncResubscribe(trigger string) {
	resubscribesTotal.WithLabelValues(trigger).Inc()
}

func IncReconnect(result string) {
	reconnectsTotal.WithLabelValues(result).Inc()
}

func IncSignal(kind string) {
	signalsTotal.WithLabelValues(kind).Inc()
}

func IncSendFailure() {
	sendFailuresTotal.Inc()
}

func IncSwipe(action, result string) {
	swipesTotal.WithLabelValues(action, result).Inc()
}

func ObserveAPIRequest(operation string, status int, start time.Time) {
	apiRequestDuration.WithLabelValues(operation, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}
