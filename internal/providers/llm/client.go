package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/multimodal-agent/server/internal/infra"
)

const (
	defaultTimeout   = 120 * time.Second
	healthPrompt     = "Say 'OK' if you are working."
	healthMaxTokens  = 10
	defaultImageMIME = "image/png"
	maxErrorBodySize = 2048
)

// Options configures a chat-completions client.
type Options struct {
	BaseURL    string
	Model      string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
	// Limiter paces outbound requests. Nil disables pacing.
	Limiter *rate.Limiter
}

// Request is a single-turn text generation.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// ImageRequest adds an inline image to Request.
type ImageRequest struct {
	Request
	Image    []byte
	MIMEType string
}

// Client talks to one OpenAI-compatible /chat/completions endpoint.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *infra.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatMessage content is either a string or a list of parts.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBase
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		baseURL:    baseURL,
		model:      strings.TrimSpace(opts.Model),
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		limiter:    opts.Limiter,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate sends a text-only prompt and returns the first choice's content.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	messages := systemMessage(req.SystemPrompt)
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	return c.complete(ctx, messages, req)
}

// GenerateWithImage sends the image as a base64 data URI followed by the
// prompt text in a single user message.
func (c *Client) GenerateWithImage(ctx context.Context, req ImageRequest) (string, error) {
	mime := strings.TrimSpace(req.MIMEType)
	if mime == "" {
		mime = defaultImageMIME
	}
	dataURI := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image)

	messages := systemMessage(req.SystemPrompt)
	messages = append(messages, chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			{Type: "text", Text: req.Prompt},
		},
	})
	return c.complete(ctx, messages, req.Request)
}

// HealthCheck reports whether the endpoint answers a trivial prompt with a
// non-empty reply. Failures are logged, never returned.
func (c *Client) HealthCheck(ctx context.Context) bool {
	out, err := c.Generate(ctx, Request{Prompt: healthPrompt, Temperature: 0.7, MaxTokens: healthMaxTokens})
	if err != nil {
		c.logger.Warn().Err(err).Str("model", c.model).Msg("llm: health check failed")
		return false
	}
	return len(out) > 0
}

func systemMessage(prompt string) []chatMessage {
	if prompt == "" {
		return make([]chatMessage, 0, 1)
	}
	return []chatMessage{{Role: "system", Content: prompt}}
}

func (c *Client) complete(ctx context.Context, messages []chatMessage, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &ConnectionError{Model: c.model, Err: err}
		}
	}

	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("model", c.model).Msg("llm: request failed")
		return "", &ConnectionError{Model: c.model, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ConnectionError{Model: c.model, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > maxErrorBodySize {
			snippet = snippet[:maxErrorBodySize]
		}
		c.logger.Error().
			Str("model", c.model).
			Int("status", resp.StatusCode).
			Str("response", snippet).
			Msg("llm: non-200 response")
		return "", &ResponseError{Model: c.model, StatusCode: resp.StatusCode, Body: snippet}
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &ResponseError{Model: c.model, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(decoded.Choices) == 0 {
		return "", &ResponseError{Model: c.model, StatusCode: resp.StatusCode, Err: errEmptyChoices}
	}

	c.logger.Debug().
		Str("model", c.model).
		Dur("elapsed", time.Since(start)).
		Int("chars", len(decoded.Choices[0].Message.Content)).
		Msg("llm: completion received")
	return decoded.Choices[0].Message.Content, nil
}
