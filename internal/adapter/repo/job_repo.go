package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/multimodal-agent/server/internal/domain"
	"github.com/multimodal-agent/server/internal/infra"
	"github.com/multimodal-agent/server/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record. CreatedAt and UpdatedAt are stamped when zero.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.UpdatedAt = job.CreatedAt
	if job.Task == "" {
		job.Task = domain.DefaultTask
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.UserID,
		job.FileID,
		string(job.Status),
		job.Task,
		job.Prompt,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, jobID))
}

// GetForUser fetches a job only when it belongs to userID.
func (r *JobRepositoryPG) GetForUser(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJobForUser, jobID, userID))
}

// ListByUser returns a page of the user's jobs, newest first, with the total count.
func (r *JobRepositoryPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Job, int, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListJobsByUser, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0, limit)
	total := 0
	for rows.Next() {
		var (
			job    domain.Job
			status string
			count  int64
		)
		if err := rows.Scan(
			&job.ID,
			&job.UserID,
			&job.FileID,
			&status,
			&job.Task,
			&job.Prompt,
			&job.ResultURL,
			&job.ErrorMessage,
			&job.CreatedAt,
			&job.UpdatedAt,
			&count,
		); err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		job.Status = domain.JobStatus(status)
		total = int(count)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate jobs: %w", err)
	}

	// The window count is absent when the page is past the end.
	if len(jobs) == 0 && offset > 0 {
		var count int64
		if err := r.sql.QueryRow(ctx, sqlinline.QCountJobsByUser, userID).Scan(&count); err != nil {
			return nil, 0, fmt.Errorf("count jobs: %w", err)
		}
		total = int(count)
	}
	return jobs, total, nil
}

// Save writes the mutable lifecycle columns of job.
func (r *JobRepositoryPG) Save(ctx context.Context, job *domain.Job) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateJobState,
		job.ID,
		string(job.Status),
		job.ResultURL,
		job.ErrorMessage,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimNext moves the oldest pending job to processing and returns its id.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context) (string, error) {
	var id string
	if err := r.sql.QueryRow(ctx, sqlinline.QClaimNextJob).Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("claim job: %w", err)
	}
	return id, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job    domain.Job
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.FileID,
		&status,
		&job.Task,
		&job.Prompt,
		&job.ResultURL,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) || infra.IsInvalidText(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
