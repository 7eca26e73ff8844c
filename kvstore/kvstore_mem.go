package kvstore

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	data     []byte
	deadline time.Time // zero means no expiry
}

// MemStore is an in-process Store for development and testing. It models the
// backend semantics the rest of the layer depends on: per-key atomic
// increments, ordered list appends, lazy TTL expiry, and redis LRANGE index
// handling (negative offsets count from the end, stop is inclusive).
type MemStore struct {
	mu    sync.Mutex
	vals  map[string]memEntry
	lists map[string][][]byte
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		vals:  make(map[string]memEntry),
		lists: make(map[string][][]byte),
	}
}

// getLocked returns the live entry for key, dropping it if expired. Caller
// must hold mu.
func (s *MemStore) getLocked(key string) (memEntry, bool) {
	e, ok := s.vals[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		delete(s.vals, key)
		return memEntry{}, false
	}
	return e, true
}

func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.getLocked(key)
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(e.data), nil
}

func (s *MemStore) Set(ctx context.Context, key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = memEntry{data: bytes.Clone(val)}
	return nil
}

func (s *MemStore) SetEx(ctx context.Context, key string, ttl time.Duration, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = memEntry{data: bytes.Clone(val), deadline: time.Now().Add(ttl)}
	return nil
}

func (s *MemStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	e, ok := s.getLocked(key)
	if ok {
		v, err := strconv.ParseInt(string(e.data), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("kvstore: value at %q is not an integer", key)
		}
		n = v
	}
	n++
	// keep any existing expiry, as redis INCR does
	e.data = []byte(strconv.FormatInt(n, 10))
	s.vals[key] = e
	return n, nil
}

func (s *MemStore) RPush(ctx context.Context, key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], bytes.Clone(val))
	return nil
}

func (s *MemStore) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	n := int64(len(l))
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += n
	}
	if stop >= n {
		stop = n - 1
	}
	if start >= n || start > stop {
		return nil, nil
	}
	out := make([][]byte, 0, stop-start+1)
	for _, v := range l[start : stop+1] {
		out = append(out, bytes.Clone(v))
	}
	return out, nil
}

func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.getLocked(key); ok {
		return true, nil
	}
	_, ok := s.lists[key]
	return ok, nil
}

func (s *MemStore) FlushDB(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals = make(map[string]memEntry)
	s.lists = make(map[string][][]byte)
	return nil
}

// Prune drops expired entries. Reads already treat expired entries as absent;
// pruning reclaims the memory for keys nothing reads again.
func (s *MemStore) Prune(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, e := range s.vals {
		if !e.deadline.IsZero() && now.After(e.deadline) {
			delete(s.vals, k)
		}
	}
	return nil
}
