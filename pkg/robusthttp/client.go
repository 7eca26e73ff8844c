// Shared construction of outbound HTTP clients for the page-fetch path:
// hashicorp retryablehttp over a pooled cleanhttp transport, instrumented
// with otelhttp, with retry chatter routed through slog.
package robusthttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// retryLogger adapts slog to retryablehttp's leveled interface. ERROR is
// demoted to WARN because a logged failure may still be retried.
type retryLogger struct {
	inner *slog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...any) {
	l.inner.Info(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

type clientConfig struct {
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	timeout      time.Duration
	logger       *slog.Logger
	transport    http.RoundTripper
	checkRetry   retryablehttp.CheckRetry
}

type Option func(*clientConfig)

// WithMaxRetries caps how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) { c.retryMax = n }
}

// WithRetryWaitMin sets the minimum backoff between retries.
func WithRetryWaitMin(d time.Duration) Option {
	return func(c *clientConfig) { c.retryWaitMin = d }
}

// WithRetryWaitMax sets the maximum backoff between retries.
func WithRetryWaitMax(d time.Duration) Option {
	return func(c *clientConfig) { c.retryWaitMax = d }
}

// WithTimeout bounds the total time for one request, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithLogger routes retry chatter somewhere other than slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// WithTransport swaps the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *clientConfig) { c.transport = rt }
}

// WithRetryPolicy overrides which responses and errors get retried.
func WithRetryPolicy(policy retryablehttp.CheckRetry) Option {
	return func(c *clientConfig) { c.checkRetry = policy }
}

// NewClient returns a stdlib *http.Client with retry logic inside, tuned for
// fetching pages on a cache miss. It retries connection errors and 5xx
// status (except 501), leaves 429 to the caller, and logs intermediate
// failures at WARN.
func NewClient(options ...Option) *http.Client {
	cfg := clientConfig{
		retryMax:     2,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 10 * time.Second,
		timeout:      30 * time.Second,
		logger:       slog.Default().With("subsystem", "robusthttp"),
		transport:    otelhttp.NewTransport(cleanhttp.DefaultPooledTransport()),
		checkRetry:   DefaultRetryPolicy,
	}
	for _, option := range options {
		option(&cfg)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = cfg.transport
	retryClient.RetryMax = cfg.retryMax
	retryClient.RetryWaitMin = cfg.retryWaitMin
	retryClient.RetryWaitMax = cfg.retryWaitMax
	retryClient.Logger = retryablehttp.LeveledLogger(retryLogger{inner: cfg.logger})
	retryClient.CheckRetry = cfg.checkRetry

	client := retryClient.StandardClient()
	client.Timeout = cfg.timeout
	return client
}

// TestingClient is for local integration tests: short timeout, no retries.
func TestingClient() *http.Client {
	return &http.Client{Timeout: time.Second}
}

// DefaultRetryPolicy retries like retryablehttp's default (connection errors
// and 5xx other than 501) but treats 429 Too Many Requests as terminal, so
// the application decides how to deal with rate limiting.
func DefaultRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
