package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type captured struct {
	url     string
	auth    string
	payload map[string]any
}

func newTestClient(t *testing.T, status int, body string, got *captured) *Client {
	t.Helper()
	client, err := NewClient(Options{
		BaseURL: "https://inference.example.com/v1/",
		Model:   "test-model",
		APIKey:  "secret",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if err := r.Context().Err(); err != nil {
				return nil, err
			}
			if got != nil {
				got.url = r.URL.String()
				got.auth = r.Header.Get("Authorization")
				raw, _ := io.ReadAll(r.Body)
				if err := json.Unmarshal(raw, &got.payload); err != nil {
					t.Fatalf("decode request payload: %v", err)
				}
			}
			return jsonResponse(status, body), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

const okBody = `{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Options{Model: "m"}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestGenerateBuildsChatPayload(t *testing.T) {
	var got captured
	client := newTestClient(t, http.StatusOK, okBody, &got)

	out, err := client.Generate(context.Background(), Request{
		Prompt:       "plan this",
		SystemPrompt: "you plan",
		Temperature:  0.5,
		MaxTokens:    1024,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "hello" {
		t.Fatalf("output = %q, want hello", out)
	}
	if got.url != "https://inference.example.com/v1/chat/completions" {
		t.Fatalf("url = %q", got.url)
	}
	if got.auth != "Bearer secret" {
		t.Fatalf("authorization = %q", got.auth)
	}
	if got.payload["model"] != "test-model" || got.payload["temperature"] != 0.5 || got.payload["max_tokens"] != float64(1024) {
		t.Fatalf("unexpected payload: %v", got.payload)
	}
	messages := got.payload["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	first := messages[0].(map[string]any)
	second := messages[1].(map[string]any)
	if first["role"] != "system" || first["content"] != "you plan" {
		t.Fatalf("system message = %v", first)
	}
	if second["role"] != "user" || second["content"] != "plan this" {
		t.Fatalf("user message = %v", second)
	}
}

func TestGenerateOmitsEmptySystemPrompt(t *testing.T) {
	var got captured
	client := newTestClient(t, http.StatusOK, okBody, &got)

	if _, err := client.Generate(context.Background(), Request{Prompt: "hi", MaxTokens: 5}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if messages := got.payload["messages"].([]any); len(messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(messages))
	}
}

func TestGenerateWithImageEmbedsDataURI(t *testing.T) {
	var got captured
	client := newTestClient(t, http.StatusOK, okBody, &got)
	image := []byte{0x89, 'P', 'N', 'G'}

	if _, err := client.GenerateWithImage(context.Background(), ImageRequest{
		Request:  Request{Prompt: "describe", SystemPrompt: "vision", Temperature: 0.3, MaxTokens: 2048},
		Image:    image,
		MIMEType: "image/jpeg",
	}); err != nil {
		t.Fatalf("GenerateWithImage returned error: %v", err)
	}

	messages := got.payload["messages"].([]any)
	user := messages[len(messages)-1].(map[string]any)
	parts := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("content parts = %d, want 2", len(parts))
	}
	imagePart := parts[0].(map[string]any)
	textPart := parts[1].(map[string]any)
	if imagePart["type"] != "image_url" {
		t.Fatalf("first part type = %v, want image_url", imagePart["type"])
	}
	wantURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	if url := imagePart["image_url"].(map[string]any)["url"]; url != wantURI {
		t.Fatalf("image url = %v, want %s", url, wantURI)
	}
	if textPart["type"] != "text" || textPart["text"] != "describe" {
		t.Fatalf("text part = %v", textPart)
	}
}

func TestGenerateWithImageDefaultsMIME(t *testing.T) {
	var got captured
	client := newTestClient(t, http.StatusOK, okBody, &got)

	if _, err := client.GenerateWithImage(context.Background(), ImageRequest{Request: Request{Prompt: "x"}, Image: []byte("a")}); err != nil {
		t.Fatalf("GenerateWithImage returned error: %v", err)
	}
	messages := got.payload["messages"].([]any)
	parts := messages[0].(map[string]any)["content"].([]any)
	url := parts[0].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("url = %q, want image/png data uri", url)
	}
}

func TestGenerateResponseErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-200", http.StatusServiceUnavailable, `{"error":"overloaded"}`},
		{"malformed body", http.StatusOK, `not json`},
		{"empty choices", http.StatusOK, `{"choices":[]}`},
		{"created is not ok", http.StatusCreated, okBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.status, tt.body, nil)
			_, err := client.Generate(context.Background(), Request{Prompt: "x"})
			if !IsResponse(err) {
				t.Fatalf("err = %v, want ResponseError", err)
			}
			if IsConnection(err) {
				t.Fatalf("response error classified as connection error")
			}
		})
	}
}

func TestGenerateResponseErrorCarriesStatus(t *testing.T) {
	client := newTestClient(t, http.StatusTooManyRequests, "slow down", nil)
	_, err := client.Generate(context.Background(), Request{Prompt: "x"})
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("err = %v, want *ResponseError", err)
	}
	if respErr.StatusCode != http.StatusTooManyRequests || respErr.Body != "slow down" {
		t.Fatalf("unexpected error fields: %+v", respErr)
	}
	if !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("error string = %q", err.Error())
	}
}

func TestGenerateConnectionError(t *testing.T) {
	client, err := NewClient(Options{
		BaseURL: "https://inference.example.com",
		Model:   "m",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		})},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = client.Generate(context.Background(), Request{Prompt: "x"})
	if !IsConnection(err) {
		t.Fatalf("err = %v, want ConnectionError", err)
	}
	if IsResponse(err) {
		t.Fatalf("connection error classified as response error")
	}
}

func TestGenerateCancelledContextIsConnectionError(t *testing.T) {
	client := newTestClient(t, http.StatusOK, okBody, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Generate(ctx, Request{Prompt: "x"})
	if !IsConnection(err) {
		t.Fatalf("err = %v, want ConnectionError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want to wrap context.Canceled", err)
	}
}

func TestGenerateWaitsOnLimiter(t *testing.T) {
	client, err := NewClient(Options{
		BaseURL: "https://inference.example.com",
		Model:   "m",
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, okBody), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := client.Generate(context.Background(), Request{Prompt: "first"}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Generate(ctx, Request{Prompt: "second"})
	if !IsConnection(err) {
		t.Fatalf("err = %v, want ConnectionError from limiter wait", err)
	}
}

func TestHealthCheck(t *testing.T) {
	var got captured
	healthy := newTestClient(t, http.StatusOK, okBody, &got)
	if !healthy.HealthCheck(context.Background()) {
		t.Fatalf("expected healthy")
	}
	if got.payload["max_tokens"] != float64(10) {
		t.Fatalf("max_tokens = %v, want 10", got.payload["max_tokens"])
	}
	messages := got.payload["messages"].([]any)
	if messages[0].(map[string]any)["content"] != "Say 'OK' if you are working." {
		t.Fatalf("unexpected health prompt: %v", messages[0])
	}

	empty := newTestClient(t, http.StatusOK, `{"choices":[{"message":{"content":""}}]}`, nil)
	if empty.HealthCheck(context.Background()) {
		t.Fatalf("empty reply should be unhealthy")
	}

	failing := newTestClient(t, http.StatusInternalServerError, "boom", nil)
	if failing.HealthCheck(context.Background()) {
		t.Fatalf("500 should be unhealthy")
	}
}
