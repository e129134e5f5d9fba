package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/polyblog/polyblog/langmeta"
)

// blogPostSystemPrompt instructs the model to translate article prose
// without disturbing markdown structure. {{targetLang}} is replaced with
// the target language's native name.
const blogPostSystemPrompt = `You are a professional translator specializing in technical blog posts and articles.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in {{targetLang}}, not word-for-word
- Use idiomatic expressions natural to {{targetLang}}
- Keep brand names, proper nouns, and code identifiers unchanged
- Do NOT translate technical terms that are standard in English unless they have established translations

TECHNICAL REQUIREMENTS:
- Preserve ALL Markdown formatting exactly as-is: links [text](url), **bold**, *italic*, headers, lists, blockquotes
- Preserve leading/trailing whitespace and blank-line structure
- Return ONLY the translated text, no explanations and no code fences around it`

// OpenAI translates through any OpenAI-compatible chat completions
// endpoint (OpenAI, Groq, Ollama, ...).
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter
	retries int
}

// NewOpenAI builds an OpenAI-compatible provider from opts. BaseURL and
// Model are required.
func NewOpenAI(opts Options) (*OpenAI, error) {
	opts = opts.withDefaults()
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("openai provider requires a base URL")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("openai provider requires a model")
	}
	return &OpenAI{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		model:   opts.Model,
		client:  newHTTPClient(opts.Proxy, opts.Timeout),
		limiter: newLimiter(opts.RPS),
		retries: opts.MaxRetries,
	}, nil
}

// Translate implements Translator.
func (o *OpenAI) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	system := strings.ReplaceAll(blogPostSystemPrompt, "{{targetLang}}", langmeta.NativeName(targetLang))
	payload, err := buildChatRequest(o.model, system, text)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	endpoint := o.baseURL + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= o.retries; attempt++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if o.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+o.apiKey)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			lastErr = &RequestError{Provider: "openai", Err: err}
			if attempt < o.retries {
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
				Provider: "openai",
				Status:   resp.StatusCode,
				Err:      fmt.Errorf("%s", truncate(string(body), 200)),
			}
			if retryable(resp.StatusCode) && attempt < o.retries {
				if err := sleep(ctx, backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", lastErr
		}

		out, err := extractChatResponse(body)
		if err != nil {
			return "", &RequestError{Provider: "openai", Err: err}
		}
		return out, nil
	}
	return "", lastErr
}

func buildChatRequest(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.2,
		Stream:      false,
	}
	return json.Marshal(req)
}

// extractChatResponse pulls choices[0].message.content out of a chat
// completions response, surfacing API-level errors when present.
func extractChatResponse(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response: %s", truncate(string(body), 200))
	}
	return resp.Choices[0].Message.Content, nil
}
