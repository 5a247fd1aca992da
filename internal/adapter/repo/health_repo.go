package repo

import (
	"context"
	"fmt"

	"github.com/multimodal-agent/server/internal/infra"
	"github.com/multimodal-agent/server/internal/sqlinline"
)

// HealthRepositoryPG answers liveness probes with a trivial query so the
// check goes through the same pool and logging as real traffic.
type HealthRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewHealthRepository(sql infra.SQLExecutor) *HealthRepositoryPG {
	return &HealthRepositoryPG{sql: sql}
}

func (r *HealthRepositoryPG) Ping(ctx context.Context) error {
	var one int
	if err := r.sql.QueryRow(ctx, sqlinline.QPing).Scan(&one); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
