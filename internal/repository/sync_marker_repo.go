package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/user/grant-aggregator/internal/entity"
)

// SyncMarkerRepository keeps short-lived markers about submitted syncs.
type SyncMarkerRepository interface {
	// MarkRequested records that a source was just requested, expiring after ttl.
	MarkRequested(ctx context.Context, source entity.Source, ttl time.Duration) error
	// IsRequested checks if the source was requested within its ttl.
	IsRequested(ctx context.Context, source entity.Source) (bool, error)
	// ClearRequested removes the request marker, used for forced syncs.
	ClearRequested(ctx context.Context, source entity.Source) error
	// MarkPending records that a run id is queued but not yet started.
	MarkPending(ctx context.Context, runID uuid.UUID, ttl time.Duration) error
	// IsPending checks for a pending marker.
	IsPending(ctx context.Context, runID uuid.UUID) (bool, error)
	// ClearPending removes the marker once the worker opened the run log.
	ClearPending(ctx context.Context, runID uuid.UUID) error
}
