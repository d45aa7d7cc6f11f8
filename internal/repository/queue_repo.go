package repository

import (
	"context"

	"github.com/user/grant-aggregator/internal/entity"
)

// QueueRepository defines the interface for a FIFO queue of sync jobs.
type QueueRepository interface {
	// Push adds a job to the end of the queue.
	Push(ctx context.Context, job *entity.SyncJob) error
	// Pop removes and returns the job at the front of the queue, or ErrQueueEmpty.
	Pop(ctx context.Context) (*entity.SyncJob, error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
