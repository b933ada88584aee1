package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckInsCreated counts durable check-in writes.
	CheckInsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkins_created_total",
		Help: "Number of check-ins successfully appended.",
	})

	// FeedRecomputes counts pod feed aggregations by what triggered them.
	FeedRecomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_recomputes_total",
		Help: "Number of pod feed recomputations.",
	}, []string{"trigger"})

	// TriggersCoalesced counts check-in events that were folded into an
	// already pending recompute instead of scheduling their own.
	TriggersCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_triggers_coalesced_total",
		Help: "Number of feed refresh triggers merged by debouncing.",
	})

	// DispatcherReconnects counts event bus reconnect attempts.
	DispatcherReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_reconnects_total",
		Help: "Number of event bus reconnects performed by the dispatcher.",
	})

	// FeedRecomputeDuration observes how long a full aggregation takes.
	FeedRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_recompute_duration_seconds",
		Help:    "Latency of pod feed aggregation.",
		Buckets: prometheus.DefBuckets,
	})

	// StreakCacheHits counts streak lookups answered from Redis.
	StreakCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streak_cache_lookups_total",
		Help: "Streak cache lookups by outcome.",
	}, []string{"outcome"})
)
