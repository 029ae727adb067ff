package redisx

import "time"

const (
	// Order status read cache, scoped to the owner so a cache hit never
	// bypasses the ownership check: order_status:{user_id}:{order_id}
	KeyOrderStatus = "order_status:%d:%s"

	// Dedup of processed provider events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
