package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
	"github.com/user/grant-aggregator/pkg/metrics"
)

var (
	ErrSyncRecentlyRequested = errors.New("source sync was requested recently and force is false")
	ErrUnknownSource         = errors.New("unknown source")
)

const (
	// SourceAll submits one job per known source.
	SourceAll = "all"

	// pendingExpiry bounds how long a job that was never picked up reports as queued.
	pendingExpiry = 24 * time.Hour

	statusQueued = "queued"
)

// SyncManager defines the interface for requesting and tracking manual syncs.
type SyncManager interface {
	Submit(ctx context.Context, source string, force bool) ([]*entity.SyncJob, error)
	Status(ctx context.Context, runID uuid.UUID) (*entity.SyncStatus, error)
}

type syncManagerUseCase struct {
	queueRepo  repository.QueueRepository
	markerRepo repository.SyncMarkerRepository
	runLogRepo repository.RunLogRepository
	dedupe     time.Duration
	now        func() time.Time
}

// NewSyncManager creates a new SyncManager use case. A source requested within
// dedupe is refused unless the caller forces it.
func NewSyncManager(
	queueRepo repository.QueueRepository,
	markerRepo repository.SyncMarkerRepository,
	runLogRepo repository.RunLogRepository,
	dedupe time.Duration,
) SyncManager {
	return &syncManagerUseCase{
		queueRepo:  queueRepo,
		markerRepo: markerRepo,
		runLogRepo: runLogRepo,
		dedupe:     dedupe,
		now:        time.Now,
	}
}

// Submit queues a job per requested source. With "all", sources that were
// requested recently are skipped; ErrSyncRecentlyRequested is returned only
// when nothing was left to queue.
func (uc *syncManagerUseCase) Submit(ctx context.Context, name string, force bool) ([]*entity.SyncJob, error) {
	sources, err := resolveSources(name)
	if err != nil {
		return nil, err
	}

	var jobs []*entity.SyncJob
	for _, src := range sources {
		if force {
			if err := uc.markerRepo.ClearRequested(ctx, src); err != nil {
				slog.Warn("Failed to clear request marker for forced sync", "source", src, "error", err)
				// Continue anyway, as this is not a critical failure
			}
		} else {
			requested, err := uc.markerRepo.IsRequested(ctx, src)
			if err != nil {
				return nil, err
			}
			if requested {
				slog.Info("Sync skipped, requested recently", "source", src)
				continue
			}
		}

		job := &entity.SyncJob{RunID: uuid.New(), Source: src, RequestedAt: uc.now().UTC()}
		if err := uc.markerRepo.MarkPending(ctx, job.RunID, pendingExpiry); err != nil {
			return nil, fmt.Errorf("mark run %s pending: %w", job.RunID, err)
		}
		if err := uc.queueRepo.Push(ctx, job); err != nil {
			return nil, fmt.Errorf("queue sync for %s: %w", src, err)
		}
		if err := uc.markerRepo.MarkRequested(ctx, src, uc.dedupe); err != nil {
			// The job is queued already; a duplicate request may slip through. Log it.
			slog.Error("Failed to mark source as requested after queueing", "source", src, "error", err)
		}
		slog.Info("Sync queued", "source", src, "run_id", job.RunID, "force", force)
		jobs = append(jobs, job)
	}

	if size, err := uc.queueRepo.Size(ctx); err == nil {
		metrics.SyncJobsInQueue.Set(float64(size))
	}
	if len(jobs) == 0 {
		return nil, ErrSyncRecentlyRequested
	}
	return jobs, nil
}

// Status reports the run log once the worker opened it, queued while the job
// waits, and repository.ErrNotFound otherwise.
func (uc *syncManagerUseCase) Status(ctx context.Context, runID uuid.UUID) (*entity.SyncStatus, error) {
	run, err := uc.runLogRepo.FindByID(ctx, runID)
	if err == nil {
		return &entity.SyncStatus{RunID: runID, CurrentStatus: string(run.Status), Run: run}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	pending, err := uc.markerRepo.IsPending(ctx, runID)
	if err != nil {
		return nil, err
	}
	if pending {
		return &entity.SyncStatus{RunID: runID, CurrentStatus: statusQueued}, nil
	}
	return nil, repository.ErrNotFound
}

func resolveSources(name string) ([]entity.Source, error) {
	if name == SourceAll {
		return entity.AllSources, nil
	}
	src, ok := entity.ParseSource(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return []entity.Source{src}, nil
}
