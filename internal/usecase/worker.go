package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
	"github.com/user/grant-aggregator/internal/source"
	"github.com/user/grant-aggregator/pkg/metrics"
)

const laneBuffer = 8

// Worker drains the sync queue. Each source gets its own lane goroutine so a
// long rate-limit cooldown in one pipeline never delays the other; jobs in
// the same lane run one after another.
type Worker struct {
	queue   repository.QueueRepository
	markers repository.SyncMarkerRepository
	store   Store
	sources map[entity.Source]source.Source
	poll    time.Duration
	today   func() time.Time
}

// NewWorker creates a queue worker. today supplies the civil date for each run.
func NewWorker(
	queue repository.QueueRepository,
	markers repository.SyncMarkerRepository,
	store Store,
	sources []source.Source,
	poll time.Duration,
	today func() time.Time,
) *Worker {
	bySource := make(map[entity.Source]source.Source, len(sources))
	for _, s := range sources {
		bySource[s.Name()] = s
	}
	return &Worker{
		queue:   queue,
		markers: markers,
		store:   store,
		sources: bySource,
		poll:    poll,
		today:   today,
	}
}

// Run dispatches jobs until ctx is cancelled, then waits for the lanes to finish.
func (w *Worker) Run(ctx context.Context) error {
	g, laneCtx := errgroup.WithContext(ctx)
	lanes := make(map[entity.Source]chan *entity.SyncJob, len(w.sources))
	for name, src := range w.sources {
		ch := make(chan *entity.SyncJob, laneBuffer)
		lanes[name] = ch
		g.Go(func() error {
			w.lane(laneCtx, src, ch)
			return nil
		})
	}

	dispatchErr := w.dispatch(ctx, lanes)
	for _, ch := range lanes {
		close(ch)
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if errors.Is(dispatchErr, context.Canceled) {
		return nil
	}
	return dispatchErr
}

func (w *Worker) dispatch(ctx context.Context, lanes map[entity.Source]chan *entity.SyncJob) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, err := w.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, repository.ErrQueueEmpty) {
				slog.Error("Failed to pop sync job", "error", err)
			}
			if err := source.Sleep(ctx, w.poll); err != nil {
				return err
			}
			continue
		}
		w.observeQueue(ctx)

		lane, ok := lanes[job.Source]
		if !ok {
			slog.Warn("Dropping sync job for unknown source", "source", job.Source, "run_id", job.RunID)
			w.clearPending(job)
			continue
		}

		select {
		case lane <- job:
		default:
			// The lane is saturated; put the job back rather than block the other lanes.
			slog.Warn("Lane busy, requeueing sync job", "source", job.Source, "run_id", job.RunID)
			if err := w.queue.Push(ctx, job); err != nil {
				slog.Error("Failed to requeue sync job", "source", job.Source, "run_id", job.RunID, "error", err)
			}
			if err := source.Sleep(ctx, w.poll); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) lane(ctx context.Context, src source.Source, jobs <-chan *entity.SyncJob) {
	for job := range jobs {
		if ctx.Err() != nil {
			// Never started; hand it back to the queue for the next worker.
			if err := w.queue.Push(context.WithoutCancel(ctx), job); err != nil {
				slog.Error("Failed to requeue sync job on shutdown", "source", job.Source, "run_id", job.RunID, "error", err)
			}
			continue
		}
		slog.Info("Processing sync job", "source", job.Source, "run_id", job.RunID)
		_, err := RunScraper(ctx, w.store, src, RunOptions{RunID: job.RunID, Today: w.today()})
		if err != nil {
			slog.Error("Sync job failed", "source", job.Source, "run_id", job.RunID, "error", err)
		}
		w.clearPending(job)
	}
}

func (w *Worker) clearPending(job *entity.SyncJob) {
	if err := w.markers.ClearPending(context.Background(), job.RunID); err != nil {
		slog.Warn("Failed to clear pending marker", "run_id", job.RunID, "error", err)
	}
}

func (w *Worker) observeQueue(ctx context.Context) {
	if size, err := w.queue.Size(ctx); err == nil {
		metrics.SyncJobsInQueue.Set(float64(size))
	}
}
