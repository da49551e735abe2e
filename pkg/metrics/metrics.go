package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "nosh", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "nosh", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	BroadcastEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "nosh", Name: "broadcast_events_total", Help: "Number of dish events fanned out, by event name."},
		[]string{"event"},
	)
	BroadcastDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "nosh", Name: "broadcast_dropped_total", Help: "Number of events dropped because a session send buffer was full."},
	)
	ConnectedSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "nosh", Name: "connected_sessions", Help: "Currently connected websocket sessions."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(BroadcastEvents)
	reg.MustRegister(BroadcastDropped)
	reg.MustRegister(ConnectedSessions)
}
