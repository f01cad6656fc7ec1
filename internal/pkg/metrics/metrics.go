package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_appended_total",
			Help: "Total messages appended to room logs",
		},
		[]string{"content_type"},
	)

	RoomsPended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rooms_pended_total",
			Help: "Total room creations reserved",
		},
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rooms_created_total",
			Help: "Total rooms confirmed",
		},
	)

	MembershipTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_membership_transitions_total",
			Help: "Membership state changes",
		},
		[]string{"transition"}, // join, leave, ban, delegate
	)

	ReadPositionLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_read_position_lookups_total",
			Help: "Read position lookups by the tier that answered",
		},
		[]string{"tier"}, // cache, durable, absent
	)

	ReadPositionsSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_read_positions_synced_total",
			Help: "Read positions flushed from cache to the durable store",
		},
	)

	// Infrastructure metrics
	LockAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_lock_acquire_total",
			Help: "Distributed lock acquisition attempts",
		},
		[]string{"result"}, // acquired, timeout, error
	)

	PushPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_push_published_total",
			Help: "Push notifications handed to the delivery channel",
		},
		[]string{"result"}, // ok, error, rejected
	)

	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_redis_latency_seconds",
			Help:    "Message log Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_websocket_connections",
			Help: "Currently connected WebSocket clients",
		},
	)
)
