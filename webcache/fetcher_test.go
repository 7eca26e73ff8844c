package webcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redtapehq/redtape/kvstore"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestHTTPFetcher(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		w.Write([]byte("hello from " + r.URL.Path))
	}))
	defer srv.Close()

	fetch := NewHTTPFetcher(srv.Client())

	out, err := fetch(ctx, srv.URL+"/page")
	assert.NoError(err)
	assert.Equal("hello from /page", out)

	_, err = fetch(ctx, srv.URL+"/missing")
	assert.Error(err)
}

func TestHTTPFetcherThroughCache(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := New(kvstore.NewMemStore(), NewHTTPFetcher(srv.Client()), WithTTL(time.Minute))

	out, err := c.Get(ctx, srv.URL)
	assert.NoError(err)
	assert.Equal("payload", out)
	out, err = c.Get(ctx, srv.URL)
	assert.NoError(err)
	assert.Equal("payload", out)
	assert.Equal(int64(1), hits.Load())
}

func TestHTTPFetcherLimiter(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// burst of one and a glacial refill: the second fetch cannot get a token
	// before its context deadline
	fetch := NewHTTPFetcher(srv.Client(), WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))

	out, err := fetch(ctx, srv.URL)
	assert.NoError(err)
	assert.Equal("ok", out)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = fetch(cctx, srv.URL)
	assert.Error(err)
}
