// Package cache fronts the external directory and notification feeds with a
// best-effort TTL cache. A miss or backend failure simply falls through to
// the origin.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// None is a no-op cache for callers that want to bypass caching.
type None struct{}

func (None) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (None) Set(context.Context, string, []byte, time.Duration) {}
func (None) Delete(context.Context, string)                     {}
