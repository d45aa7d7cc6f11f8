package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
)

// testPool connects to TEST_POSTGRES_URL, migrates and empties the tables, or skips.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE grants, scrape_logs;`)
	require.NoError(t, err)
	return pool
}

func civil(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestGrantUpsertAndSweep(t *testing.T) {
	ctx := context.Background()
	repo := NewGrantRepo(testPool(t))

	g := &entity.Grant{
		Source:              entity.SourceJGrants,
		SourceID:            "jgrants_a0WJ200000CDTnT",
		Title:               "研究開発補助金",
		Organization:        "経済産業省",
		Category:            entity.CategoryResearch,
		ApplicationDeadline: civil(2026, time.March, 31),
		Status:              entity.StatusOpen,
		RawPayload:          []byte(`{"id":"a0WJ200000CDTnT"}`),
	}
	created, err := repo.Upsert(ctx, g)
	require.NoError(t, err)
	assert.True(t, created)
	firstID := g.ID

	g.Title = "研究開発補助金（第2回）"
	created, err = repo.Upsert(ctx, g)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, g.ID)

	closed, err := repo.CloseExpired(ctx, *civil(2026, time.April, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, closed)

	got, err := repo.FindByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "研究開発補助金（第2回）", got.Title)
	assert.Equal(t, entity.StatusClosed, got.Status)
	assert.JSONEq(t, `{"id":"a0WJ200000CDTnT"}`, string(got.RawPayload))

	page, err := repo.List(ctx, entity.GrantFilter{Keyword: "第2回"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.SourceCounts[entity.SourceJGrants])

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGrantUpsertRejectsInvalidRecord(t *testing.T) {
	repo := NewGrantRepo(testPool(t))

	_, err := repo.Upsert(context.Background(), &entity.Grant{
		Source:       entity.SourceERad,
		SourceID:     "erad_1",
		Title:        "",
		Organization: "org",
		Category:     entity.CategoryResearch,
		Status:       entity.StatusOpen,
	})
	assert.ErrorIs(t, err, repository.ErrInvalidRecord)
}

func TestRunLogLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRunLogRepo(testPool(t))

	log := &entity.RunLog{SourceRef: entity.SourceERad, Status: entity.RunRunning}
	require.NoError(t, repo.Create(ctx, log))
	require.NotEqual(t, uuid.Nil, log.ID)

	log.Status = entity.RunSuccess
	log.Stats = entity.RunStats{Found: 3, Created: 2, Updated: 1}
	require.NoError(t, repo.Complete(ctx, log))

	got, err := repo.FindByID(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunSuccess, got.Status)
	assert.Equal(t, log.Stats, got.Stats)
	assert.NotNil(t, got.FinishedAt)

	// A terminal log cannot be completed twice.
	assert.ErrorIs(t, repo.Complete(ctx, log), repository.ErrNotFound)

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, log.ID, recent[0].ID)
}
