package webcache

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

type FetcherOption func(*httpFetcher)

// WithLimiter bounds the rate of outbound fetches. Waiting respects the
// request context.
func WithLimiter(limiter *rate.Limiter) FetcherOption {
	return func(f *httpFetcher) { f.limiter = limiter }
}

type httpFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher returns a FetchFunc that GETs the URL and returns the
// response body. Non-2xx responses are failures. A nil client falls back to
// http.DefaultClient; pass a robusthttp client to get retries.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) FetchFunc {
	f := &httpFetcher{client: client}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	for _, o := range opts {
		o(f)
	}
	return f.fetch
}

func (f *httpFetcher) fetch(ctx context.Context, url string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch returned non-2xx status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
