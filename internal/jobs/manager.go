// Package jobs drives a persisted job through the workflow and records the
// outcome.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime/debug"
	"time"

	"github.com/multimodal-agent/server/internal/domain"
	"github.com/multimodal-agent/server/internal/infra"
	"github.com/multimodal-agent/server/internal/storage"
	"github.com/multimodal-agent/server/internal/workflow"
)

const (
	msgFileNotFound  = "File not found"
	msgInternalError = "internal error"
	msgNoOutput      = "Code generation produced no output"
	resultsPrefix    = "results"
	defaultImageMIME = "image/png"
)

// Runner executes the workflow over a prepared state.
type Runner interface {
	Run(ctx context.Context, st *workflow.State) *workflow.State
	Language() workflow.Language
}

// SnapshotCache is the slice of the cache the manager writes through.
type SnapshotCache interface {
	InvalidateJob(ctx context.Context, jobID string) bool
}

// Result is the outcome of one Process call.
type Result struct {
	Job   *domain.Job
	State *workflow.State
}

// Manager owns the status of jobs while they run.
type Manager struct {
	jobs   domain.JobRepository
	files  domain.FileRepository
	store  storage.ObjectStore
	runner Runner
	cache  SnapshotCache
	now    func() time.Time
	logger *infra.Logger
}

// Option customises a Manager.
type Option func(*Manager)

// WithCache invalidates job snapshots after every status write.
func WithCache(c SnapshotCache) Option {
	return func(m *Manager) { m.cache = c }
}

// WithClock replaces time.Now for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the manager's logger.
func WithLogger(logger *infra.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager wires the collaborators used by Process.
func NewManager(jobs domain.JobRepository, files domain.FileRepository, store storage.ObjectStore, runner Runner, opts ...Option) *Manager {
	m := &Manager{
		jobs:   jobs,
		files:  files,
		store:  store,
		runner: runner,
		now:    func() time.Time { return time.Now().UTC() },
		logger: infra.NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Process runs jobID to a terminal status. A missing job returns
// domain.ErrNotFound without side effects. Workflow and storage failures are
// recorded on the job and do not produce an error; only failures to load or
// persist the job itself do.
func (m *Manager) Process(ctx context.Context, jobID string) (res *Result, err error) {
	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("jobs: load %s: %w", jobID, err)
	}
	res = &Result{Job: job}
	log := m.logger.With().Str("job_id", job.ID).Str("user_id", job.UserID).Logger()

	if err := job.MarkProcessing(m.now()); err != nil {
		return res, fmt.Errorf("jobs: start %s: %w", jobID, err)
	}
	if err := m.save(ctx, job); err != nil {
		return res, err
	}
	log.Info().Str("status", string(job.Status)).Msg("jobs: processing")

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("jobs: recovered panic")
			err = m.fail(ctx, job, msgInternalError)
			if err == nil {
				err = fmt.Errorf("jobs: panic while processing %s: %v", jobID, r)
			}
		}
	}()

	file, err := m.files.GetForUser(ctx, job.FileID, job.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return res, m.fail(ctx, job, msgFileNotFound)
		}
		return res, m.fail(ctx, job, "Failed to load file: "+err.Error())
	}

	image, err := m.store.Get(ctx, file.StoragePath)
	if err != nil {
		log.Warn().Err(err).Str("key", file.StoragePath).Msg("jobs: download failed")
		return res, m.fail(ctx, job, fmt.Sprintf("Failed to download file: %s", err))
	}

	lang := m.runner.Language()
	prompt := workflow.DefaultJobPrompt(lang)
	if job.Prompt != nil && *job.Prompt != "" {
		prompt = *job.Prompt
	}
	mime := file.ContentType
	if mime == "" {
		mime = defaultImageMIME
	}
	st := workflow.NewState(job.ID, job.UserID, image, mime, prompt)
	st.ImagePath = file.StoragePath
	res.State = m.runner.Run(ctx, st)

	if res.State.Failed() {
		return res, m.fail(ctx, job, res.State.Error)
	}
	if res.State.Code == "" {
		return res, m.fail(ctx, job, msgNoOutput)
	}

	key := path.Join(resultsPrefix, job.ID, lang.ArtifactName())
	stored, err := m.store.Put(ctx, key, []byte(res.State.Code), lang.ContentType)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("jobs: artifact upload failed")
		return res, m.fail(ctx, job, fmt.Sprintf("Failed to store result: %s", err))
	}
	if err := job.MarkCompleted(stored, m.now()); err != nil {
		return res, fmt.Errorf("jobs: complete %s: %w", jobID, err)
	}
	if err := m.save(ctx, job); err != nil {
		return res, err
	}
	log.Info().Str("result_url", stored).Msg("jobs: completed")
	return res, nil
}

// fail moves job to FAILED and persists it. Only a persistence failure is
// returned.
func (m *Manager) fail(ctx context.Context, job *domain.Job, message string) error {
	if err := job.MarkFailed(message, m.now()); err != nil {
		return fmt.Errorf("jobs: fail %s: %w", job.ID, err)
	}
	if err := m.save(ctx, job); err != nil {
		return err
	}
	m.logger.Warn().Str("job_id", job.ID).Str("error_message", message).Msg("jobs: failed")
	return nil
}

// save persists job and drops its cached snapshot. Writes survive
// cancellation of ctx so a timed-out job still reaches a terminal status.
func (m *Manager) save(ctx context.Context, job *domain.Job) error {
	ctx = context.WithoutCancel(ctx)
	if err := m.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("jobs: save %s: %w", job.ID, err)
	}
	if m.cache != nil {
		m.cache.InvalidateJob(ctx, job.ID)
	}
	return nil
}
