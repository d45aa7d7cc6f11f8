package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/user/grant-aggregator/internal/entity"
)

// GrantRepository defines the interface for storing and querying grants.
type GrantRepository interface {
	// Upsert inserts the grant or overwrites every mutable field of the row sharing its SourceID.
	// created reports whether a new row was inserted.
	Upsert(ctx context.Context, g *entity.Grant) (created bool, err error)
	// CloseExpired moves every grant whose deadline is before today and that is not yet closed to closed.
	CloseExpired(ctx context.Context, today time.Time) (int64, error)
	// List returns one filtered, sorted page plus collection-wide metadata.
	List(ctx context.Context, filter entity.GrantFilter) (*entity.GrantPage, error)
	// FindByID returns ErrNotFound when no grant has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Grant, error)
}
