package cache

import (
	"context"
	"time"

	"github.com/multimodal-agent/server/internal/domain"
)

const (
	jobPrefix = "job"
	llmPrefix = "llm"
)

// TTLPolicy picks a snapshot lifetime from the job status.
type TTLPolicy struct {
	Active   time.Duration
	Terminal time.Duration
}

// DefaultTTLPolicy keeps in-flight jobs briefly and finished jobs for an hour.
var DefaultTTLPolicy = TTLPolicy{Active: 10 * time.Second, Terminal: time.Hour}

// ForStatus returns Terminal for completed and failed jobs, Active otherwise.
func (p TTLPolicy) ForStatus(status domain.JobStatus) time.Duration {
	if status.Terminal() {
		return p.Terminal
	}
	return p.Active
}

// JobKey is the snapshot key for jobID.
func JobKey(jobID string) string {
	return GenerateKey(jobPrefix, jobID)
}

// GetJob loads a cached job snapshot.
func (c *Cache) GetJob(ctx context.Context, jobID string) (domain.JobSnapshot, bool) {
	var snap domain.JobSnapshot
	if !c.Get(ctx, JobKey(jobID), &snap) {
		return domain.JobSnapshot{}, false
	}
	return snap, true
}

// SetJob caches snap for ttl.
func (c *Cache) SetJob(ctx context.Context, snap domain.JobSnapshot, ttl time.Duration) bool {
	return c.Set(ctx, JobKey(snap.JobID), snap, ttl)
}

// InvalidateJob drops the snapshot for jobID.
func (c *Cache) InvalidateJob(ctx context.Context, jobID string) bool {
	return c.Delete(ctx, JobKey(jobID))
}

type llmEntry struct {
	Response string `json:"response"`
}

// LLMKey is the response key for a prompt sent to model.
func LLMKey(model, prompt string) string {
	return GenerateKey(llmPrefix, model, HashPrompt(prompt, model))
}

// GetLLMResponse returns a cached completion for prompt on model.
func (c *Cache) GetLLMResponse(ctx context.Context, model, prompt string) (string, bool) {
	var entry llmEntry
	if !c.Get(ctx, LLMKey(model, prompt), &entry) {
		return "", false
	}
	return entry.Response, true
}

// SetLLMResponse caches a completion.
func (c *Cache) SetLLMResponse(ctx context.Context, model, prompt, response string, ttl time.Duration) bool {
	return c.Set(ctx, LLMKey(model, prompt), llmEntry{Response: response}, ttl)
}
