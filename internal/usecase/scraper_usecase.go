package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
	"github.com/user/grant-aggregator/internal/source"
	"github.com/user/grant-aggregator/pkg/metrics"
)

var tracer = otel.Tracer("grant-aggregator/usecase")

// Store groups the repositories a scraper run writes to.
type Store struct {
	Grants repository.GrantRepository
	Runs   repository.RunLogRepository
}

// RunOptions parameterize a single scraper run.
type RunOptions struct {
	// RunID pre-assigns the run log id, as queued sync jobs do. Nil generates one.
	RunID uuid.UUID
	// Today is the civil date statuses are derived against.
	Today time.Time
}

// RunScraper executes one pipeline pass for src: open a run log, sweep expired
// grants, fetch, extract and upsert each record, then close the run log.
//
// Records the store rejects individually are skipped. Any other error fails the
// run, is written to the run log and returned. The returned log is non-nil
// whenever the run log could be created.
func RunScraper(ctx context.Context, store Store, src source.Source, opts RunOptions) (*entity.RunLog, error) {
	name := src.Name()
	ctx, span := tracer.Start(ctx, "RunScraper", trace.WithAttributes(attribute.String("source", string(name))))
	defer span.End()

	startTime := time.Now()
	today := opts.Today
	if today.IsZero() {
		n := time.Now().UTC()
		today = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	}

	log := &entity.RunLog{ID: opts.RunID, SourceRef: name, Status: entity.RunRunning}
	if err := store.Runs.Create(ctx, log); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create run log")
		return nil, fmt.Errorf("open run log for %s: %w", name, err)
	}
	slog.Info("Scraper run started", "source", name, "run_id", log.ID, "today", today.Format(time.DateOnly))

	stats, runErr := runPipeline(ctx, store.Grants, src, today)
	log.Stats = stats
	if runErr != nil {
		msg := runErr.Error()
		log.Status = entity.RunFailed
		log.ErrorMessage = &msg
	} else {
		log.Status = entity.RunSuccess
	}

	// The run log must reach a terminal state even when ctx was cancelled mid-run.
	if err := store.Runs.Complete(context.WithoutCancel(ctx), log); err != nil {
		slog.Error("Failed to complete run log", "source", name, "run_id", log.ID, "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("complete run log %s: %w", log.ID, err)
		}
	}

	metrics.ScrapeRunsTotal.WithLabelValues(string(name), string(log.Status)).Inc()
	metrics.ScrapeRunDuration.WithLabelValues(string(name)).Observe(time.Since(startTime).Seconds())
	span.SetAttributes(
		attribute.String("run.id", log.ID.String()),
		attribute.Int("records.found", stats.Found),
		attribute.Int("records.created", stats.Created),
		attribute.Int("records.updated", stats.Updated),
	)

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "run failed")
		slog.Error("Scraper run failed", "source", name, "run_id", log.ID, "stats", stats, "error", runErr)
		return log, runErr
	}
	slog.Info("Scraper run completed", "source", name, "run_id", log.ID, "stats", stats)
	return log, nil
}

func runPipeline(ctx context.Context, grants repository.GrantRepository, src source.Source, today time.Time) (entity.RunStats, error) {
	var stats entity.RunStats
	name := src.Name()

	if _, err := Sweep(ctx, grants, today); err != nil {
		return stats, err
	}

	raw, err := src.Fetch(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch %s: %w", name, err)
	}
	records, err := src.Extract(ctx, raw, today)
	if err != nil {
		return stats, fmt.Errorf("extract %s: %w", name, err)
	}
	stats.Found = len(records)

	for _, g := range records {
		created, err := grants.Upsert(ctx, g)
		switch {
		case errors.Is(err, repository.ErrInvalidRecord):
			metrics.ScrapeRecordsTotal.WithLabelValues(string(name), "skipped").Inc()
			slog.Warn("Skipping record rejected by the store", "source", name, "source_id", g.SourceID, "error", err)
			continue
		case err != nil:
			return stats, fmt.Errorf("upsert %s: %w", g.SourceID, err)
		case created:
			stats.Created++
			metrics.ScrapeRecordsTotal.WithLabelValues(string(name), "created").Inc()
		default:
			stats.Updated++
			metrics.ScrapeRecordsTotal.WithLabelValues(string(name), "updated").Inc()
		}
	}
	return stats, nil
}

// Sweep closes every stored grant whose deadline is before today.
func Sweep(ctx context.Context, grants repository.GrantRepository, today time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "Sweep")
	defer span.End()

	closed, err := grants.CloseExpired(ctx, today)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("expiry sweep: %w", err)
	}
	metrics.ExpiredGrantsClosedTotal.Add(float64(closed))
	span.SetAttributes(attribute.Int64("grants.closed", closed))
	if closed > 0 {
		slog.Info("Closed expired grants", "count", closed, "today", today.Format(time.DateOnly))
	}
	return closed, nil
}
