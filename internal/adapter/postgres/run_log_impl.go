package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
)

const runLogColumns = `id, source, started_at, finished_at, status, records_found, records_created, records_updated, error_message`

// RunLogRepoImpl provides a concrete implementation for the RunLogRepository interface using PostgreSQL.
type RunLogRepoImpl struct {
	db *pgxpool.Pool
}

// NewRunLogRepo creates a new instance of RunLogRepoImpl.
func NewRunLogRepo(db *pgxpool.Pool) *RunLogRepoImpl {
	return &RunLogRepoImpl{db: db}
}

// Create inserts the log in the running state. A nil ID is replaced with a fresh one.
func (r *RunLogRepoImpl) Create(ctx context.Context, log *entity.RunLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	query := `
		INSERT INTO scrape_logs (id, source, status)
		VALUES ($1, $2, 'running')
		RETURNING started_at;
	`
	if err := r.db.QueryRow(ctx, query, log.ID, string(log.SourceRef)).Scan(&log.StartedAt); err != nil {
		return fmt.Errorf("create run log: %w", err)
	}
	log.Status = entity.RunRunning
	return nil
}

// Complete stores the terminal state. Logs that are already terminal are left untouched.
func (r *RunLogRepoImpl) Complete(ctx context.Context, log *entity.RunLog) error {
	query := `
		UPDATE scrape_logs SET
			finished_at = now(),
			status = $2,
			records_found = $3,
			records_created = $4,
			records_updated = $5,
			error_message = $6
		WHERE id = $1 AND status = 'running'
		RETURNING finished_at;
	`
	err := r.db.QueryRow(ctx, query,
		log.ID,
		string(log.Status),
		log.Stats.Found,
		log.Stats.Created,
		log.Stats.Updated,
		log.ErrorMessage,
	).Scan(&log.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("complete run log %s: %w", log.ID, repository.ErrNotFound)
		}
		return fmt.Errorf("complete run log %s: %w", log.ID, err)
	}
	return nil
}

// FindByID retrieves a single run log.
func (r *RunLogRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.RunLog, error) {
	query := `SELECT ` + runLogColumns + ` FROM scrape_logs WHERE id = $1;`
	log, err := scanRunLog(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classifyError("find run log", err)
	}
	return log, nil
}

// ListRecent returns the newest runs first.
func (r *RunLogRepoImpl) ListRecent(ctx context.Context, limit int) ([]*entity.RunLog, error) {
	query := `SELECT ` + runLogColumns + ` FROM scrape_logs ORDER BY started_at DESC LIMIT $1;`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.RunLog, error) {
		return scanRunLog(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan run logs: %w", err)
	}
	return logs, nil
}

func scanRunLog(row pgx.Row) (*entity.RunLog, error) {
	var l entity.RunLog
	var src, status string
	err := row.Scan(
		&l.ID,
		&src,
		&l.StartedAt,
		&l.FinishedAt,
		&status,
		&l.Stats.Found,
		&l.Stats.Created,
		&l.Stats.Updated,
		&l.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	l.SourceRef = entity.Source(src)
	l.Status = entity.RunStatus(status)
	return &l, nil
}
