// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionState reports the live channel state (0 disconnected,
	// 1 connecting, 2 connected, 3 closed).
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_channel_state",
			Help: "Current live channel state",
		},
	)

	// ReconnectAttempts counts scheduled reconnect attempts.
	ReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_channel_reconnect_attempts_total",
			Help: "Total reconnect attempts scheduled after an unexpected close",
		},
	)

	// ReconnectDelay tracks the delay chosen for each scheduled retry.
	ReconnectDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "live_channel_reconnect_delay_seconds",
			Help:    "Delay before a scheduled reconnect",
			Buckets: []float64{.5, 1, 2, 3, 5, 10, 20, 30, 60},
		},
	)

	// FramesTotal counts frames by direction and type.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_channel_frames_total",
			Help: "Total frames exchanged over the live channel",
		},
		[]string{"direction", "type"},
	)

	// MessageSends counts outgoing messages by delivery path and outcome.
	MessageSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "message_sends_total",
			Help: "Total outgoing messages by delivery path",
		},
		[]string{"path", "status"},
	)

	// UnreadCount reports the last committed unread tally per source.
	UnreadCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "unread_count",
			Help: "Unread items per source in the last committed tally",
		},
		[]string{"source"},
	)

	// UnreadRefreshes counts aggregator refreshes by outcome.
	UnreadRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unread_refreshes_total",
			Help: "Total unread aggregator refreshes",
		},
		[]string{"status"},
	)

	// RequestDuration tracks HTTP request duration on the stand-in server.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests on the stand-in server.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WSConnectionsActive tracks sockets held by the stand-in hub.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active live channel sockets on the server",
		},
	)

	// MessagesTotal tracks messages created on the stand-in server.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages created",
		},
		[]string{"via"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordFrame counts one frame. direction is "in" or "out".
func RecordFrame(direction, frameType string) {
	FramesTotal.WithLabelValues(direction, frameType).Inc()
}

// RecordSend counts one outgoing message attempt.
func RecordSend(path string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	MessageSends.WithLabelValues(path, status).Inc()
}

// RecordUnread publishes a committed tally.
func RecordUnread(notifications, invitations, messages int) {
	UnreadCount.WithLabelValues("notifications").Set(float64(notifications))
	UnreadCount.WithLabelValues("invitations").Set(float64(invitations))
	UnreadCount.WithLabelValues("messages").Set(float64(messages))
	UnreadCount.WithLabelValues("total").Set(float64(notifications + invitations + messages))
}

// IncrementWSConnections increments the active socket count.
func IncrementWSConnections() {
	WSConnectionsActive.Inc()
}

// DecrementWSConnections decrements the active socket count.
func DecrementWSConnections() {
	WSConnectionsActive.Dec()
}
