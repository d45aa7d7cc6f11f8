package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/grant-aggregator/internal/entity"
)

const (
	requestedPrefix = "grants:sync:requested:"
	pendingPrefix   = "grants:sync:pending:"
)

// MarkerRepoImpl provides a concrete implementation for the SyncMarkerRepository interface
// using expiring Redis keys.
type MarkerRepoImpl struct {
	client *redis.Client
}

// NewMarkerRepo creates a new instance of MarkerRepoImpl.
func NewMarkerRepo(client *redis.Client) *MarkerRepoImpl {
	return &MarkerRepoImpl{client: client}
}

func (r *MarkerRepoImpl) MarkRequested(ctx context.Context, source entity.Source, ttl time.Duration) error {
	// SETEX is atomic and sets the key with an expiry.
	return r.client.SetEx(ctx, requestedPrefix+string(source), "1", ttl).Err()
}

func (r *MarkerRepoImpl) IsRequested(ctx context.Context, source entity.Source) (bool, error) {
	return r.exists(ctx, requestedPrefix+string(source))
}

func (r *MarkerRepoImpl) ClearRequested(ctx context.Context, source entity.Source) error {
	return r.client.Del(ctx, requestedPrefix+string(source)).Err()
}

func (r *MarkerRepoImpl) MarkPending(ctx context.Context, runID uuid.UUID, ttl time.Duration) error {
	return r.client.SetEx(ctx, pendingPrefix+runID.String(), "1", ttl).Err()
}

func (r *MarkerRepoImpl) IsPending(ctx context.Context, runID uuid.UUID) (bool, error) {
	return r.exists(ctx, pendingPrefix+runID.String())
}

func (r *MarkerRepoImpl) ClearPending(ctx context.Context, runID uuid.UUID) error {
	return r.client.Del(ctx, pendingPrefix+runID.String()).Err()
}

// exists reports whether key is set. EXISTS returns 1 if the key exists, 0 otherwise.
func (r *MarkerRepoImpl) exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
