package repository

import (
	"time"

	"chat_sync_service/pkg/metrics"
)

// observe records the latency of one store operation: defer observe("mongo", "append")()
func observe(backend, op string) func() {
	start := time.Now()
	return func() {
		metrics.StoreOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	}
}
