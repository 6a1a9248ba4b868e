// Package cache provides the key/value engines that back browser sessions, user sessions
// and the developer upload simulator. Values are stored JSON encoded with a TTL.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key/value store. Get and Take return an error wrapping
// errors.ErrNotFound when the key is missing or expired.
type Cache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Take reads and deletes the key in one step. Of several concurrent callers at most one
	// receives the value.
	Take(ctx context.Context, key string, dst any) error
	Delete(ctx context.Context, key string) error
	Close() error
}
