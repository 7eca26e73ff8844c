// Typed value storage over the key-value backend. Every Put writes under a
// freshly generated random key, so writes never collide and need no locking;
// reads decode the raw payload on demand.
//
// Put is instrumented through the tracker package: each call increments the
// operation counter and lands in the input/output history logs, which can be
// replayed via the handle returned by Tracked.
package blobstore

import (
	"context"
	"fmt"

	"github.com/redtapehq/redtape/kvstore"
	"github.com/redtapehq/redtape/tracker"

	"github.com/google/uuid"
)

// DefaultOpName is the logical name Put's instrumentation records under.
const DefaultOpName = "BlobStore.Put"

type Option func(*config)

type config struct {
	opName string
	flush  bool
}

// WithOpName overrides the logical name used for Put's counter and history
// logs. Two stores sharing a backend should use distinct names.
func WithOpName(name string) Option {
	return func(c *config) { c.opName = name }
}

// WithFlush clears the entire backend namespace during New. Only safe when
// this store owns the namespace outright; the backend may be shared.
func WithFlush() Option {
	return func(c *config) { c.flush = true }
}

// BlobStore persists arbitrary scalar values under fresh random keys. It
// holds no state beyond configuration; all bytes live in the backend, so any
// number of instances may share one.
type BlobStore struct {
	kv  kvstore.Store
	put *tracker.Tracked
}

func New(kv kvstore.Store, opts ...Option) (*BlobStore, error) {
	cfg := config{opName: DefaultOpName}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.flush {
		if err := kv.FlushDB(context.TODO()); err != nil {
			return nil, fmt.Errorf("flushing backend: %w", err)
		}
	}
	s := &BlobStore{kv: kv}
	s.put = tracker.New(kv, cfg.opName, func(ctx context.Context, args ...any) (any, error) {
		return s.putRaw(ctx, args[0])
	})
	return s, nil
}

// Put stores value under a freshly generated key and returns the key. Keys
// are never reused or mutated in place: every call writes a new entry.
func (s *BlobStore) Put(ctx context.Context, value any) (string, error) {
	out, err := s.put.Invoke(ctx, value)
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (s *BlobStore) putRaw(ctx context.Context, value any) (string, error) {
	data, err := encodeValue(value)
	if err != nil {
		return "", err
	}
	key := uuid.NewString()
	if err := s.kv.Set(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// Get reads the raw payload for key; absent keys fail with
// kvstore.ErrNotFound. A non-nil decode transforms the raw bytes (failures
// should wrap ErrDecode); a nil decode returns them as []byte.
func (s *BlobStore) Get(ctx context.Context, key string, decode DecodeFunc) (any, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if decode == nil {
		return raw, nil
	}
	return decode(raw)
}

// GetString reads the payload for key as UTF-8 text.
func (s *BlobStore) GetString(ctx context.Context, key string) (string, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return decodeString(raw)
}

// GetInt64 reads the payload for key as a base-10 integer.
func (s *BlobStore) GetInt64(ctx context.Context, key string) (int64, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return decodeInt64(raw)
}

// GetFloat64 reads the payload for key as a decimal floating-point number.
func (s *BlobStore) GetFloat64(ctx context.Context, key string) (float64, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return decodeFloat64(raw)
}

// Tracked returns the instrumentation handle for Put, for counting and
// history replay.
func (s *BlobStore) Tracked() *tracker.Tracked {
	return s.put
}
