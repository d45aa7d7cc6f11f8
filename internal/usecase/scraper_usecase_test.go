package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
)

var today = day(2025, 6, 1)

func grant(sourceID, title string) entity.Grant {
	return entity.Grant{
		Source:       entity.SourceJGrants,
		SourceID:     sourceID,
		Title:        title,
		Organization: "テスト省",
		Category:     entity.CategoryResearch,
		Status:       entity.StatusOpen,
	}
}

func newStore() (Store, *memGrantRepo, *memRunLogRepo) {
	grants, runs := newMemGrantRepo(), newMemRunLogRepo()
	return Store{Grants: grants, Runs: runs}, grants, runs
}

func TestRunScraperIsIdempotent(t *testing.T) {
	store, grants, runs := newStore()
	src := &fakeSource{name: entity.SourceJGrants, grants: []entity.Grant{grant("jgrants_1", "補助金A"), grant("jgrants_2", "補助金B")}}

	first, err := RunScraper(context.Background(), store, src, RunOptions{Today: today})
	require.NoError(t, err)
	assert.Equal(t, entity.RunStats{Found: 2, Created: 2, Updated: 0}, first.Stats)

	second, err := RunScraper(context.Background(), store, src, RunOptions{Today: today})
	require.NoError(t, err)
	assert.Equal(t, entity.RunStats{Found: 2, Created: 0, Updated: 2}, second.Stats)
	assert.Equal(t, 2, grants.count())

	stored, err := runs.FindByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunSuccess, stored.Status)
	assert.NotNil(t, stored.FinishedAt)
	assert.Nil(t, stored.ErrorMessage)
	assert.Equal(t, second.Stats, stored.Stats)
}

func TestRunScraperUpdatesOnlyChangedRecord(t *testing.T) {
	store, grants, _ := newStore()
	src := &fakeSource{name: entity.SourceJGrants, grants: []entity.Grant{grant("jgrants_1", "補助金A"), grant("jgrants_2", "補助金B")}}
	_, err := RunScraper(context.Background(), store, src, RunOptions{Today: today})
	require.NoError(t, err)
	idBefore := grants.get("jgrants_1").ID

	src.grants = []entity.Grant{grant("jgrants_1", "補助金A（改訂）")}
	log, err := RunScraper(context.Background(), store, src, RunOptions{Today: today})
	require.NoError(t, err)
	assert.Equal(t, entity.RunStats{Found: 1, Created: 0, Updated: 1}, log.Stats)

	updated := grants.get("jgrants_1")
	assert.Equal(t, "補助金A（改訂）", updated.Title)
	assert.Equal(t, idBefore, updated.ID)
	assert.Equal(t, "補助金B", grants.get("jgrants_2").Title)
}

func TestRunScraperSweepsBeforeFetching(t *testing.T) {
	store, grants, _ := newStore()
	expired := grant("erad_1", "締切済みの公募情報")
	expired.ApplicationDeadline = datePtr(2025, 5, 31)
	_, err := grants.Upsert(context.Background(), &expired)
	require.NoError(t, err)

	src := &fakeSource{name: entity.SourceERad, onFetch: func(context.Context) error {
		assert.Equal(t, entity.StatusClosed, grants.get("erad_1").Status, "sweep must run before fetch")
		return nil
	}}
	log, err := RunScraper(context.Background(), store, src, RunOptions{Today: today})
	require.NoError(t, err)
	assert.Equal(t, entity.RunStats{}, log.Stats)
	assert.Equal(t, entity.StatusClosed, grants.get("erad_1").Status)
}

func TestRunScraperFetchFailureFailsRun(t *testing.T) {
	store, _, runs := newStore()
	fetchErr := errors.New("503 from upstream")
	src := &fakeSource{name: entity.SourceERad, fetchErr: fetchErr}

	log, err := RunScraper(context.Background(), store, src, RunOptions{Today: today})
	require.ErrorIs(t, err, fetchErr)
	require.NotNil(t, log)

	stored, err := runs.FindByID(context.Background(), log.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "503 from upstream")
	assert.NotNil(t, stored.FinishedAt)
}

func TestRunScraperSkipsInvalidRecords(t *testing.T) {
	store, grants, _ := newStore()
	grants.errFor["jgrants_bad"] = fmt.Errorf("upsert: %w: value too long", repository.ErrInvalidRecord)
	src := &fakeSource{name: entity.SourceJGrants, grants: []entity.Grant{
		grant("jgrants_1", "補助金A"), grant("jgrants_bad", "補助金X"), grant("jgrants_2", "補助金B"),
	}}

	log, err := RunScraper(context.Background(), store, src, RunOptions{Today: today})
	require.NoError(t, err)
	assert.Equal(t, entity.RunSuccess, log.Status)
	assert.Equal(t, entity.RunStats{Found: 3, Created: 2, Updated: 0}, log.Stats)
	assert.Nil(t, grants.get("jgrants_bad"))
}

func TestRunScraperFatalUpsertErrorKeepsPartialWrites(t *testing.T) {
	store, grants, runs := newStore()
	dbDown := errors.New("connection refused")
	grants.errFor["jgrants_2"] = dbDown
	src := &fakeSource{name: entity.SourceJGrants, grants: []entity.Grant{
		grant("jgrants_1", "補助金A"), grant("jgrants_2", "補助金B"), grant("jgrants_3", "補助金C"),
	}}

	log, err := RunScraper(context.Background(), store, src, RunOptions{Today: today})
	require.ErrorIs(t, err, dbDown)
	assert.Equal(t, entity.RunStats{Found: 3, Created: 1, Updated: 0}, log.Stats)
	assert.NotNil(t, grants.get("jgrants_1"))
	assert.Nil(t, grants.get("jgrants_3"))

	stored, err := runs.FindByID(context.Background(), log.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunFailed, stored.Status)
	assert.Equal(t, 1, stored.Stats.Created)
}

func TestRunScraperUsesPreassignedRunID(t *testing.T) {
	store, _, runs := newStore()
	id := uuid.New()
	log, err := RunScraper(context.Background(), store, &fakeSource{name: entity.SourceERad}, RunOptions{RunID: id, Today: today})
	require.NoError(t, err)
	assert.Equal(t, id, log.ID)

	_, err = runs.FindByID(context.Background(), id)
	assert.NoError(t, err)
}

func TestRunScraperCancelledRunIsMarkedFailed(t *testing.T) {
	store, _, runs := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{name: entity.SourceJGrants, onFetch: func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	}}

	log, err := RunScraper(ctx, store, src, RunOptions{Today: today})
	require.ErrorIs(t, err, context.Canceled)

	stored, err := runs.FindByID(context.Background(), log.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunFailed, stored.Status)
}

func TestSweepClosesOnlyPastDeadlines(t *testing.T) {
	_, grants, _ := newStore()
	for id, deadline := range map[string]*time.Time{
		"yesterday": datePtr(2025, 5, 31),
		"today":     datePtr(2025, 6, 1),
		"future":    datePtr(2025, 7, 1),
	} {
		g := grant(id, id)
		g.ApplicationDeadline = deadline
		_, err := grants.Upsert(context.Background(), &g)
		require.NoError(t, err)
	}
	noDeadline := grant("none", "none")
	_, err := grants.Upsert(context.Background(), &noDeadline)
	require.NoError(t, err)

	closed, err := Sweep(context.Background(), grants, today)
	require.NoError(t, err)
	assert.EqualValues(t, 1, closed)
	assert.Equal(t, entity.StatusClosed, grants.get("yesterday").Status)
	assert.Equal(t, entity.StatusOpen, grants.get("today").Status)
	assert.Equal(t, entity.StatusOpen, grants.get("future").Status)
	assert.Equal(t, entity.StatusOpen, grants.get("none").Status)

	closed, err = Sweep(context.Background(), grants, today)
	require.NoError(t, err)
	assert.Zero(t, closed)
}
