package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent (or expired).
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the set of backend primitives the cache layer relies on. All
// methods block until the backend round-trip completes; there are no
// speculative returns. Implementations must make Incr atomic per key and
// RPush an atomic ordered append.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	SetEx(ctx context.Context, key string, ttl time.Duration, val []byte) error
	Incr(ctx context.Context, key string) (int64, error)
	RPush(ctx context.Context, key string, val []byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	FlushDB(ctx context.Context) error
}
