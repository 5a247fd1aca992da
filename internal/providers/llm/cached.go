package llm

import (
	"context"
	"time"
)

// TextGenerator is the text-only half of Client.
type TextGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// ResponseCache stores completions keyed by model and prompt.
type ResponseCache interface {
	GetLLMResponse(ctx context.Context, model, prompt string) (string, bool)
	SetLLMResponse(ctx context.Context, model, prompt, response string, ttl time.Duration) bool
}

// CachedModel serves repeated text prompts from a ResponseCache. Cache
// misses and cache failures fall through to the wrapped generator.
type CachedModel struct {
	next  TextGenerator
	cache ResponseCache
	ttl   time.Duration
}

// NewCachedModel wraps next. A nil cache returns a decorator that always
// calls through.
func NewCachedModel(next TextGenerator, cache ResponseCache, ttl time.Duration) *CachedModel {
	return &CachedModel{next: next, cache: cache, ttl: ttl}
}

func (m *CachedModel) Model() string {
	return m.next.Model()
}

func (m *CachedModel) Generate(ctx context.Context, req Request) (string, error) {
	if m.cache == nil {
		return m.next.Generate(ctx, req)
	}
	key := cacheKey(req)
	if hit, ok := m.cache.GetLLMResponse(ctx, m.next.Model(), key); ok {
		return hit, nil
	}
	out, err := m.next.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	m.cache.SetLLMResponse(ctx, m.next.Model(), key, out, m.ttl)
	return out, nil
}

// cacheKey folds the system prompt into the hashed prompt so two stages that
// share a user prompt do not collide.
func cacheKey(req Request) string {
	if req.SystemPrompt == "" {
		return req.Prompt
	}
	return req.SystemPrompt + "\n\n" + req.Prompt
}

var (
	_ TextGenerator = (*Client)(nil)
	_ TextGenerator = (*CachedModel)(nil)
)
