package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/user/grant-aggregator/internal/entity"
)

// RunLogRepository defines the interface for the audit trail of scraper runs.
type RunLogRepository interface {
	// Create stores a new run log in the running state.
	Create(ctx context.Context, log *entity.RunLog) error
	// Complete records the terminal status, counters and error of a running log.
	Complete(ctx context.Context, log *entity.RunLog) error
	// FindByID returns ErrNotFound when no run has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RunLog, error)
	// ListRecent returns the newest runs first.
	ListRecent(ctx context.Context, limit int) ([]*entity.RunLog, error)
}
