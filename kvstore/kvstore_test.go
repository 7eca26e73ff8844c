package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestMemStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	kv := NewMemStore()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(err, ErrNotFound)

	ok, err := kv.Exists(ctx, "missing")
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(kv.Set(ctx, "greeting", []byte("hello")))
	b, err := kv.Get(ctx, "greeting")
	assert.NoError(err)
	assert.Equal([]byte("hello"), b)

	ok, err = kv.Exists(ctx, "greeting")
	assert.NoError(err)
	assert.True(ok)

	// overwrite is unconditional
	assert.NoError(kv.Set(ctx, "greeting", []byte("bonjour")))
	b, err = kv.Get(ctx, "greeting")
	assert.NoError(err)
	assert.Equal([]byte("bonjour"), b)

	assert.NoError(kv.FlushDB(ctx))
	_, err = kv.Get(ctx, "greeting")
	assert.ErrorIs(err, ErrNotFound)
}

func TestMemStoreIncr(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	kv := NewMemStore()

	n, err := kv.Incr(ctx, "hits")
	assert.NoError(err)
	assert.Equal(int64(1), n)
	n, err = kv.Incr(ctx, "hits")
	assert.NoError(err)
	assert.Equal(int64(2), n)

	b, err := kv.Get(ctx, "hits")
	assert.NoError(err)
	assert.Equal([]byte("2"), b)

	assert.NoError(kv.Set(ctx, "word", []byte("nope")))
	_, err = kv.Incr(ctx, "word")
	assert.Error(err)
}

func TestMemStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	kv := NewMemStore()

	assert.NoError(kv.SetEx(ctx, "ephemeral", 50*time.Millisecond, []byte("soon gone")))
	b, err := kv.Get(ctx, "ephemeral")
	assert.NoError(err)
	assert.Equal([]byte("soon gone"), b)

	time.Sleep(60 * time.Millisecond)

	_, err = kv.Get(ctx, "ephemeral")
	assert.ErrorIs(err, ErrNotFound)
	ok, err := kv.Exists(ctx, "ephemeral")
	assert.NoError(err)
	assert.False(ok)
}

func TestMemStorePrune(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	kv := NewMemStore()

	assert.NoError(kv.Set(ctx, "keep", []byte("forever")))
	assert.NoError(kv.SetEx(ctx, "drop1", 10*time.Millisecond, []byte("x")))
	assert.NoError(kv.SetEx(ctx, "drop2", 10*time.Millisecond, []byte("y")))

	time.Sleep(20 * time.Millisecond)

	// expired entries linger until read or pruned
	assert.Equal(3, len(kv.vals))
	assert.NoError(kv.Prune(ctx))
	assert.Equal(1, len(kv.vals))

	b, err := kv.Get(ctx, "keep")
	assert.NoError(err)
	assert.Equal([]byte("forever"), b)
}

func TestMemStoreLists(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	kv := NewMemStore()

	vals, err := kv.LRange(ctx, "log", 0, -1)
	assert.NoError(err)
	assert.Empty(vals)

	for _, v := range []string{"a", "b", "c", "d"} {
		assert.NoError(kv.RPush(ctx, "log", []byte(v)))
	}

	vals, err = kv.LRange(ctx, "log", 0, -1)
	assert.NoError(err)
	assert.Equal([][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}, vals)

	vals, err = kv.LRange(ctx, "log", 1, 2)
	assert.NoError(err)
	assert.Equal([][]byte{[]byte("b"), []byte("c")}, vals)

	vals, err = kv.LRange(ctx, "log", -2, -1)
	assert.NoError(err)
	assert.Equal([][]byte{[]byte("c"), []byte("d")}, vals)

	// out-of-range indexes clamp rather than error, as redis does
	vals, err = kv.LRange(ctx, "log", 2, 100)
	assert.NoError(err)
	assert.Equal([][]byte{[]byte("c"), []byte("d")}, vals)

	vals, err = kv.LRange(ctx, "log", 5, 10)
	assert.NoError(err)
	assert.Empty(vals)

	ok, err := kv.Exists(ctx, "log")
	assert.NoError(err)
	assert.True(ok)
}

func TestMemStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	kv := NewMemStore()

	// Increment and append from several goroutines while readers poll.
	// Don't assert intermediate values; just that there's no error, and no
	// race (run this with `-race`!). The short sleep yields the scheduler so
	// reads interleave with writes.
	errs := errgroup.Group{}
	writer := func(times int) func() error {
		return func() error {
			for i := 0; i < times; i++ {
				if _, err := kv.Incr(ctx, "counter"); err != nil {
					return err
				}
				if err := kv.RPush(ctx, "log", []byte("x")); err != nil {
					return err
				}
				time.Sleep(time.Nanosecond)
			}
			return nil
		}
	}
	reader := func(times int) func() error {
		return func() error {
			for i := 0; i < times; i++ {
				_, _ = kv.Get(ctx, "counter")
				if _, err := kv.LRange(ctx, "log", 0, -1); err != nil {
					return err
				}
				time.Sleep(time.Nanosecond)
			}
			return nil
		}
	}
	errs.Go(writer(10))
	errs.Go(writer(10))
	errs.Go(writer(5))
	errs.Go(writer(5))
	errs.Go(reader(10))
	errs.Go(reader(10))
	assert.NoError(errs.Wait())

	n, err := kv.Incr(ctx, "counter")
	assert.NoError(err)
	assert.Equal(int64(31), n)
	vals, err := kv.LRange(ctx, "log", 0, -1)
	assert.NoError(err)
	assert.Equal(30, len(vals))
}
