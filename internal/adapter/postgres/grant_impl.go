package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/grant-aggregator/internal/entity"
)

const grantColumns = `id, source, source_id, title, organization, category, summary, target_audience,
	amount_min, amount_max, application_start, application_deadline, detail_url, status, raw_data,
	last_synced_at, created_at, updated_at`

// sortColumns whitelists the ORDER BY targets reachable from the listing API.
var sortColumns = map[string]string{
	"deadline": "application_deadline",
	"created":  "created_at",
	"amount":   "amount_max",
	"title":    "title",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GrantRepoImpl provides a concrete implementation for the GrantRepository interface using PostgreSQL.
type GrantRepoImpl struct {
	db *pgxpool.Pool
}

// NewGrantRepo creates a new instance of GrantRepoImpl.
func NewGrantRepo(db *pgxpool.Pool) *GrantRepoImpl {
	return &GrantRepoImpl{db: db}
}

// Upsert inserts or overwrites a grant keyed by source_id in one statement.
// xmax is zero only for a freshly inserted tuple, which tells created from updated
// without a prior lookup.
func (r *GrantRepoImpl) Upsert(ctx context.Context, g *entity.Grant) (bool, error) {
	query := `
		INSERT INTO grants (source, source_id, title, organization, category, summary, target_audience,
			amount_min, amount_max, application_start, application_deadline, detail_url, status, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (source_id) DO UPDATE SET
			title = EXCLUDED.title,
			organization = EXCLUDED.organization,
			category = EXCLUDED.category,
			summary = EXCLUDED.summary,
			target_audience = EXCLUDED.target_audience,
			amount_min = EXCLUDED.amount_min,
			amount_max = EXCLUDED.amount_max,
			application_start = EXCLUDED.application_start,
			application_deadline = EXCLUDED.application_deadline,
			detail_url = EXCLUDED.detail_url,
			status = EXCLUDED.status,
			raw_data = EXCLUDED.raw_data,
			last_synced_at = now(),
			updated_at = now()
		RETURNING id, (xmax = 0), last_synced_at, created_at, updated_at;
	`

	var rawData []byte
	if len(g.RawPayload) > 0 {
		rawData = g.RawPayload
	}

	var created bool
	err := r.db.QueryRow(ctx, query,
		string(g.Source),
		g.SourceID,
		g.Title,
		g.Organization,
		string(g.Category),
		g.Summary,
		g.TargetAudience,
		g.AmountMin,
		g.AmountMax,
		g.ApplicationStart,
		g.ApplicationDeadline,
		g.DetailURL,
		string(g.Status),
		rawData,
	).Scan(&g.ID, &created, &g.LastSyncedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return false, classifyError("upsert grant "+g.SourceID, err)
	}
	return created, nil
}

// CloseExpired closes every grant whose deadline lies before today.
func (r *GrantRepoImpl) CloseExpired(ctx context.Context, today time.Time) (int64, error) {
	query := `
		UPDATE grants SET status = 'closed', updated_at = now()
		WHERE application_deadline < $1 AND status <> 'closed';
	`
	tag, err := r.db.Exec(ctx, query, today)
	if err != nil {
		return 0, fmt.Errorf("close expired grants: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindByID retrieves a single grant.
func (r *GrantRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE id = $1;`
	g, err := scanGrant(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classifyError("find grant", err)
	}
	return g, nil
}

// List returns one page of grants. Source counts and the last sync time cover the whole table.
func (r *GrantRepoImpl) List(ctx context.Context, filter entity.GrantFilter) (*entity.GrantPage, error) {
	filter = filter.Normalize()
	where, args := buildWhere(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM grants`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count grants: %w", err)
	}

	query := `SELECT ` + grantColumns + ` FROM grants` + where + orderBy(filter) +
		fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	grants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.Grant, error) {
		return scanGrant(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan grants: %w", err)
	}

	counts, err := r.sourceCounts(ctx)
	if err != nil {
		return nil, err
	}

	var lastSynced *time.Time
	if err := r.db.QueryRow(ctx, `SELECT max(last_synced_at) FROM grants`).Scan(&lastSynced); err != nil {
		return nil, fmt.Errorf("last synced: %w", err)
	}

	return &entity.GrantPage{
		Grants:       grants,
		Total:        total,
		Page:         filter.Page,
		Limit:        filter.Limit,
		TotalPages:   entity.TotalPagesFor(total, filter.Limit),
		SourceCounts: counts,
		LastSynced:   lastSynced,
	}, nil
}

func (r *GrantRepoImpl) sourceCounts(ctx context.Context) (map[entity.Source]int, error) {
	rows, err := r.db.Query(ctx, `SELECT source, count(*) FROM grants GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.Source]int)
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		counts[entity.Source(src)] = n
	}
	return counts, rows.Err()
}

// buildWhere renders the filter as a WHERE clause with positional arguments.
func buildWhere(f entity.GrantFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Source != "" {
		add("source = $%d", string(f.Source))
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		add("title ILIKE $%d", "%"+likeEscaper.Replace(kw)+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderBy expects a normalized filter. id breaks ties so pages do not overlap.
func orderBy(f entity.GrantFilter) string {
	col, ok := sortColumns[f.Sort]
	if !ok {
		col = sortColumns["deadline"]
	}
	dir := "ASC"
	if f.Order == "desc" {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST, id ASC", col, dir)
}

func scanGrant(row pgx.Row) (*entity.Grant, error) {
	var g entity.Grant
	var src, category, status string
	var rawData []byte
	err := row.Scan(
		&g.ID,
		&src,
		&g.SourceID,
		&g.Title,
		&g.Organization,
		&category,
		&g.Summary,
		&g.TargetAudience,
		&g.AmountMin,
		&g.AmountMax,
		&g.ApplicationStart,
		&g.ApplicationDeadline,
		&g.DetailURL,
		&status,
		&rawData,
		&g.LastSyncedAt,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Source = entity.Source(src)
	g.Category = entity.Category(category)
	g.Status = entity.GrantStatus(status)
	g.RawPayload = rawData
	return &g, nil
}
