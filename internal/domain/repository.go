package domain

import "context"

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetForUser(ctx context.Context, jobID, userID string) (*Job, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Job, int, error)
	// Save persists status, result_url, error_message and updated_at.
	Save(ctx context.Context, job *Job) error
	// ClaimNext atomically moves the oldest pending job to processing and
	// returns its id. ErrNotFound means the queue is empty.
	ClaimNext(ctx context.Context) (string, error)
}

// FileRepository handles persistence for uploaded files.
type FileRepository interface {
	Create(ctx context.Context, file *File) error
	GetByID(ctx context.Context, fileID string) (*File, error)
	GetForUser(ctx context.Context, fileID, userID string) (*File, error)
}
