package memory

import (
	"context"
	"time"
)

// DurablePeer is the optional second tier behind the in-process cache.
// When configured, writes are mirrored to the peer so memory entries
// and shared contexts survive process restarts and are visible across
// orchestrator instances; when unset, the store runs cache-only.
type DurablePeer interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}
