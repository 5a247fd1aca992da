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

// FileRepositoryPG implements domain.FileRepository.
type FileRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewFileRepository(sql infra.SQLExecutor) *FileRepositoryPG {
	return &FileRepositoryPG{sql: sql}
}

func (r *FileRepositoryPG) Create(ctx context.Context, file *domain.File) error {
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertFile,
		file.ID,
		file.UserID,
		file.Filename,
		file.ContentType,
		file.Size,
		file.StoragePath,
		file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *FileRepositoryPG) GetByID(ctx context.Context, fileID string) (*domain.File, error) {
	return scanFile(r.sql.QueryRow(ctx, sqlinline.QSelectFileByID, fileID))
}

func (r *FileRepositoryPG) GetForUser(ctx context.Context, fileID, userID string) (*domain.File, error) {
	return scanFile(r.sql.QueryRow(ctx, sqlinline.QSelectFileForUser, fileID, userID))
}

func scanFile(row pgx.Row) (*domain.File, error) {
	var f domain.File
	if err := row.Scan(&f.ID, &f.UserID, &f.Filename, &f.ContentType, &f.Size, &f.StoragePath, &f.CreatedAt); err != nil {
		if infra.IsNoRows(err) || infra.IsInvalidText(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

var _ domain.FileRepository = (*FileRepositoryPG)(nil)
