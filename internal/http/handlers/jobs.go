package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/multimodal-agent/server/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxPromptRunes   = 4000
	maxTaskRunes     = 64
)

type createJobRequest struct {
	FileID string  `json:"file_id"`
	Task   string  `json:"task"`
	Prompt *string `json:"prompt"`
}

type listJobsResponse struct {
	Jobs  []domain.JobSnapshot `json:"jobs"`
	Total int                  `json:"total"`
}

// CreateJob queues an image-to-code job for one of the caller's files.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	var req createJobRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if req.FileID == "" {
		a.error(w, http.StatusBadRequest, "INVALID_REQUEST", "file_id is required")
		return
	}
	if _, err := uuid.Parse(req.FileID); err != nil {
		a.error(w, http.StatusBadRequest, "INVALID_REQUEST", "file_id must be a UUID")
		return
	}

	task := strings.TrimSpace(req.Task)
	if task == "" {
		task = domain.DefaultTask
	}
	if utf8.RuneCountInString(task) > maxTaskRunes {
		a.error(w, http.StatusBadRequest, "INVALID_REQUEST", "task is too long")
		return
	}

	prompt, ok := normalizePrompt(req.Prompt)
	if !ok {
		a.error(w, http.StatusBadRequest, "INVALID_REQUEST", "prompt is too long")
		return
	}

	ctx := r.Context()
	if _, err := a.Files.GetForUser(ctx, req.FileID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found. Please upload a file first.")
			return
		}
		a.Logger.Error().Err(err).Str("file_id", req.FileID).Msg("create job: load file failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load file")
		return
	}

	now := a.now()
	job := &domain.Job{
		ID:        a.newID(),
		UserID:    userID,
		FileID:    req.FileID,
		Status:    domain.JobStatusPending,
		Task:      task,
		Prompt:    prompt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.Jobs.Create(ctx, job); err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("create job: insert failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create job")
		return
	}

	snap := job.Snapshot()
	a.Cache.SetJob(ctx, snap, a.TTL.ForStatus(job.Status))
	a.Logger.Info().Str("job_id", job.ID).Str("user_id", userID).Str("file_id", job.FileID).Msg("create job: queued")
	a.json(w, http.StatusCreated, snap)
}

// ListJobs pages through the caller's jobs, newest first.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	jobs, total, err := a.Jobs.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("list jobs: query failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list jobs")
		return
	}

	resp := listJobsResponse{Jobs: make([]domain.JobSnapshot, 0, len(jobs)), Total: total}
	for i := range jobs {
		resp.Jobs = append(resp.Jobs, jobs[i].Snapshot())
	}
	a.json(w, http.StatusOK, resp)
}

// GetJob serves a job snapshot, from the cache when the caller owns the
// cached entry and from the database otherwise.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return
	}

	jobID := chi.URLParam(r, "job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		a.error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
		return
	}

	ctx := r.Context()
	if snap, ok := a.Cache.GetJob(ctx, jobID); ok && snap.UserID == userID {
		a.json(w, http.StatusOK, snap)
		return
	}

	job, err := a.Jobs.GetForUser(ctx, jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("get job: query failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load job")
		return
	}

	snap := job.Snapshot()
	a.Cache.SetJob(ctx, snap, a.TTL.ForStatus(job.Status))
	a.json(w, http.StatusOK, snap)
}

// normalizePrompt trims and NFC-normalises a prompt. Blank prompts become
// nil; ok is false when the prompt exceeds maxPromptRunes.
func normalizePrompt(p *string) (*string, bool) {
	if p == nil {
		return nil, true
	}
	s := norm.NFC.String(strings.TrimSpace(*p))
	if s == "" {
		return nil, true
	}
	if utf8.RuneCountInString(s) > maxPromptRunes {
		return nil, false
	}
	return &s, true
}
