// Package translate implements the external text-translation primitive
// behind the article pipeline. Two providers are available: the free
// Google web endpoint (the default, no credentials needed) and any
// OpenAI-compatible chat endpoint for LLM-backed translation.
//
// All providers apply a bounded per-request timeout, bounded retries with
// exponential backoff on transient failures, and client-side request
// pacing. Translation is always best-effort from the caller's point of
// view: an error here means "fall back to the original text", never a
// failed page.
package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Translator turns text into the target language. Implementations must
// be safe for concurrent use: segment translations within one render are
// issued in parallel.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// RequestError describes a failed provider request after all retries.
type RequestError struct {
	Provider string
	Status   int // HTTP status, 0 for transport errors
	Err      error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s translation failed with status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s translation failed: %v", e.Provider, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Options controls provider behavior. The zero value gets usable
// defaults from withDefaults.
type Options struct {
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// APIKey authenticates the request (OpenAI provider).
	APIKey string
	// Model is the model identifier (OpenAI provider).
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL. Empty means honor the
	// standard proxy environment variables.
	Proxy string
	// Timeout bounds each request, including retried attempts' bodies.
	Timeout time.Duration
	// MaxRetries is the retry budget on 429 and 5xx responses.
	MaxRetries int
	// RPS paces outgoing requests. Zero disables pacing.
	RPS float64
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}

// newLimiter builds the pacing limiter, or nil when pacing is off.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// newHTTPClient builds the provider HTTP client with proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// backoff returns the wait before retry attempt n (0-based): 1s, 2s, 4s...
func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// retryable reports whether an HTTP status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
