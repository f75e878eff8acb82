package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studyroom"

var (
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_received_total",
		Help:      "Inbound WebSocket frames dispatched, by message type.",
	}, []string{"type"})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Inbound frames dropped, by reason.",
	}, []string{"reason"})

	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Outbound messages written to the socket, by message type.",
	}, []string{"type"})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_dropped_total",
		Help:      "Outbound messages dropped because the socket was not connected.",
	}, []string{"type"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Session events dropped because a subscriber queue was full, by event.",
	}, []string{"event"})

	ReconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnect_attempts_total",
		Help:      "Reconnect attempts scheduled after an unexpected close.",
	})

	ConnectionsLost = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_lost_total",
		Help:      "Sessions that exhausted their reconnect attempts.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Room sessions currently open.",
	})

	ConnectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected_sessions",
		Help:      "Room sessions with a live socket.",
	})
)
