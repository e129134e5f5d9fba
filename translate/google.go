package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultGoogleBaseURL is the free Google web translation endpoint.
const DefaultGoogleBaseURL = "https://translate.googleapis.com"

// googleLangCodes maps site language tags to the codes the Google
// endpoint expects. Unlisted tags pass through unchanged.
var googleLangCodes = map[string]string{
	"zh": "zh-CN",
}

// Google translates via the public translate_a/single endpoint, the same
// service the gtx web client uses. No API key required.
type Google struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retries int
}

// NewGoogle builds a Google provider from opts.
func NewGoogle(opts Options) *Google {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}
	return &Google{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(opts.Proxy, opts.Timeout),
		limiter: newLimiter(opts.RPS),
		retries: opts.MaxRetries,
	}
}

// Translate implements Translator.
func (g *Google) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", googleLangCode(targetLang))
	query.Set("dt", "t")
	query.Set("q", text)
	endpoint := g.baseURL + "/translate_a/single?" + query.Encode()

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			lastErr = &RequestError{Provider: "google", Err: err}
			if attempt < g.retries {
				if err := sleep(ctx, backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", lastErr
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = &RequestError{
				Provider: "google",
				Status:   resp.StatusCode,
				Err:      fmt.Errorf("%s", truncate(string(body), 200)),
			}
			if retryable(resp.StatusCode) && attempt < g.retries {
				if err := sleep(ctx, backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", lastErr
		}

		translated, err := parseGoogleResponse(body)
		if err != nil {
			return "", &RequestError{Provider: "google", Err: err}
		}
		return translated, nil
	}
	return "", lastErr
}

// parseGoogleResponse decodes the gtx response shape: a nested array
// whose first element lists [translatedChunk, sourceChunk, ...] pairs.
// The translation is the concatenation of all chunks.
func parseGoogleResponse(body []byte) (string, error) {
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid response: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty response")
	}
	chunks, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected response shape")
	}

	var b strings.Builder
	for _, c := range chunks {
		pair, ok := c.([]any)
		if !ok || len(pair) == 0 {
			continue
		}
		if s, ok := pair[0].(string); ok {
			b.WriteString(s)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no translation in response")
	}
	return b.String(), nil
}

func googleLangCode(lang string) string {
	if code, ok := googleLangCodes[lang]; ok {
		return code
	}
	return lang
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
