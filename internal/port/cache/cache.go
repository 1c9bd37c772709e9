// Package cache defines the port interface for the resolved-result cache.
// Terminal session snapshots are parked here when the store evicts them, so
// status reads keep answering during the post-resolution grace period.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching of serialized snapshots.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
