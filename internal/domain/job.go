package domain

import (
	"fmt"
	"time"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	// JobStatusValidating and JobStatusExecuting are reserved for a sandboxed
	// execution stage. No code path currently enters them.
	JobStatusValidating JobStatus = "validating"
	JobStatusExecuting  JobStatus = "executing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// DefaultTask is stored when a job is created without an explicit task.
const DefaultTask = "analyze"

// Valid reports whether s is one of the declared statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusValidating,
		JobStatusExecuting, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing, JobStatusFailed},
	JobStatusProcessing: {JobStatusProcessing, JobStatusCompleted, JobStatusFailed},
}

// CanTransition reports whether a job may move from s to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Job is one image-to-code request owned by a user.
type Job struct {
	ID           string
	UserID       string
	FileID       string
	Status       JobStatus
	Task         string
	Prompt       *string
	ResultURL    *string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MarkProcessing moves the job into PROCESSING. Re-entering PROCESSING is
// allowed so a worker claim followed by the manager's own write is not an
// error.
func (j *Job) MarkProcessing(now time.Time) error {
	if err := j.transition(JobStatusProcessing); err != nil {
		return err
	}
	j.ResultURL = nil
	j.ErrorMessage = nil
	j.UpdatedAt = now
	return nil
}

// MarkCompleted records a successful run and its artifact location.
func (j *Job) MarkCompleted(resultURL string, now time.Time) error {
	if resultURL == "" {
		return fmt.Errorf("%w: completed job needs a result url", ErrInvalidInput)
	}
	if err := j.transition(JobStatusCompleted); err != nil {
		return err
	}
	j.ResultURL = &resultURL
	j.ErrorMessage = nil
	j.UpdatedAt = now
	return nil
}

// MarkFailed records a failed run. An empty message is replaced so the
// error_message column is never blank for a failed job.
func (j *Job) MarkFailed(message string, now time.Time) error {
	if message == "" {
		message = "unknown error"
	}
	if err := j.transition(JobStatusFailed); err != nil {
		return err
	}
	j.ErrorMessage = &message
	j.ResultURL = nil
	j.UpdatedAt = now
	return nil
}

func (j *Job) transition(next JobStatus) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	return nil
}

// JobSnapshot is the JSON shape served by the API and stored in the cache.
type JobSnapshot struct {
	JobID        string    `json:"job_id"`
	UserID       string    `json:"user_id"`
	FileID       string    `json:"file_id"`
	Status       JobStatus `json:"status"`
	Task         string    `json:"task"`
	Prompt       *string   `json:"prompt"`
	ResultURL    *string   `json:"result_url"`
	ErrorMessage *string   `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot copies the job into its serialisable form.
func (j *Job) Snapshot() JobSnapshot {
	return JobSnapshot{
		JobID:        j.ID,
		UserID:       j.UserID,
		FileID:       j.FileID,
		Status:       j.Status,
		Task:         j.Task,
		Prompt:       j.Prompt,
		ResultURL:    j.ResultURL,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt.UTC(),
		UpdatedAt:    j.UpdatedAt.UTC(),
	}
}
