// Package cache holds the key/value capability shared by catalog reads and
// writes. Components receive a Store explicitly; there is no global client.
package cache

import (
	"context"
	"time"
)

// Store is the external cache service as seen by the catalog.
type Store interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Keys enumerates keys matching a glob pattern such as "products:page:*".
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)
	Ping(ctx context.Context) error
}
