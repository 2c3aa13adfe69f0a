package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync engine
	RoomsEntered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sync_rooms_entered_total",
			Help: "Total room sessions started",
		},
	)

	BulkFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sync_bulk_fetches_total",
			Help: "Total bulk fetches by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: enter, load_more, refresh
	)

	LiveMessagesMerged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sync_live_messages_merged_total",
			Help: "Live-delivered messages merged into the store",
		},
	)

	DuplicatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sync_duplicates_dropped_total",
			Help: "Live-delivered messages ignored because the id was already known",
		},
		[]string{"stage"}, // "live", "buffered"
	)

	SubscriptionsLost = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sync_subscriptions_lost_total",
			Help: "Live subscriptions dropped by the store",
		},
	)

	// Send pipeline
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sync_messages_sent_total",
			Help: "Send attempts by result",
		},
		[]string{"result"},
	)

	// Notifications
	NotificationsFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sync_notifications_fired_total",
			Help: "Local notifications emitted",
		},
	)

	// Store
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_sync_store_op_duration_seconds",
			Help:    "Remote store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"backend", "op"},
	)
)
