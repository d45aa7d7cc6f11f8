package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
)

const syncQueueKey = "grants:sync:queue"

// QueueRepoImpl provides a concrete implementation for the QueueRepository interface using Redis Lists.
type QueueRepoImpl struct {
	client *redis.Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds a job to the left side of the Redis list (acting as a queue).
func (r *QueueRepoImpl) Push(ctx context.Context, job *entity.SyncJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode sync job: %w", err)
	}
	return r.client.LPush(ctx, syncQueueKey, payload).Err()
}

// Pop removes and returns a job from the right side of the list.
// An empty list yields repository.ErrQueueEmpty.
func (r *QueueRepoImpl) Pop(ctx context.Context) (*entity.SyncJob, error) {
	payload, err := r.client.RPop(ctx, syncQueueKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}

	var job entity.SyncJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("decode sync job %q: %w", payload, err)
	}
	return &job, nil
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, syncQueueKey).Result()
}
