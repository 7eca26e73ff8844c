package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/redtapehq/redtape/blobstore"
	"github.com/redtapehq/redtape/kvstore"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	srv, err := NewServer(
		kvstore.NewMemStore(),
		Config{
			Logger:         logger,
			Bind:           ":0",
			FetchRateLimit: 100,
		},
	)
	require.NoError(t, err)
	return srv
}

func TestHandleHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/_health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"daemon":"redtape"`)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestBlobRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/blobs", strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out StoreBlobOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Key)

	req = httptest.NewRequest(http.MethodGet, "/v1/blobs/"+out.Key, nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"value":"hello"`)
}

func TestBlobTypedRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/blobs?as=int", strings.NewReader("42\n"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out StoreBlobOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	req = httptest.NewRequest(http.MethodGet, "/v1/blobs/"+out.Key+"?as=int", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"value":42`)
}

func TestBlobNotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/blobs/no-such-key", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "KeyNotFound")
}

func TestBlobDecodeMismatch(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/blobs", strings.NewReader("definitely not a number"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var out StoreBlobOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	req = httptest.NewRequest(http.MethodGet, "/v1/blobs/"+out.Key+"?as=int", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "DecodeFailed")
}

func TestStoreBlobUnknownType(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/blobs?as=bogus", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "UnknownValueType")
}

func TestPageEndpoints(t *testing.T) {
	var upstreamHits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits.Add(1)
		fmt.Fprint(w, "page body")
	}))
	defer upstream.Close()

	srv := newTestServer(t)

	fetchPage := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/page?url="+upstream.URL, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	rec := fetchPage()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "page body", rec.Body.String())
	require.Equal(t, int64(1), upstreamHits.Load())

	// second request is served from cache
	rec = fetchPage()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "page body", rec.Body.String())
	require.Equal(t, int64(1), upstreamHits.Load())

	req := httptest.NewRequest(http.MethodGet, "/v1/page/requests?url="+upstream.URL, nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"requests":1`)
}

func TestPageMissingURL(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/page", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "MissingParameter")
}

func TestOpEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, val := range []string{"first", "second"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/blobs", strings.NewReader(val))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/"+blobstore.DefaultOpName+"/count", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":2`)

	req = httptest.NewRequest(http.MethodGet, "/v1/ops/"+blobstore.DefaultOpName+"/replay", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Body.String(), "BlobStore.Put was called 2 times:"))
	require.Contains(t, rec.Body.String(), "(first)")
	require.Contains(t, rec.Body.String(), "(second)")
}

func TestOpEndpointsUnknownOp(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ghost/count", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":0`)

	req = httptest.NewRequest(http.MethodGet, "/v1/ops/ghost/replay", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ghost was called 0 times:\n", rec.Body.String())
}
