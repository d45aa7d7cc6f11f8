package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
)

// testClient connects to REDIS_ADDR on a scratch database, or skips.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestQueueIsFIFO(t *testing.T) {
	ctx := context.Background()
	q := NewQueueRepo(testClient(t))

	_, err := q.Pop(ctx)
	require.ErrorIs(t, err, repository.ErrQueueEmpty)

	first := &entity.SyncJob{RunID: uuid.New(), Source: entity.SourceJGrants, RequestedAt: time.Now().UTC().Truncate(time.Second)}
	second := &entity.SyncJob{RunID: uuid.New(), Source: entity.SourceERad, RequestedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, q.Push(ctx, first))
	require.NoError(t, q.Push(ctx, second))

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, size)

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.RunID, got.RunID)
	assert.Equal(t, entity.SourceJGrants, got.Source)
	assert.True(t, first.RequestedAt.Equal(got.RequestedAt))
}

func TestMarkers(t *testing.T) {
	ctx := context.Background()
	m := NewMarkerRepo(testClient(t))

	ok, err := m.IsRequested(ctx, entity.SourceERad)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.MarkRequested(ctx, entity.SourceERad, time.Minute))
	ok, err = m.IsRequested(ctx, entity.SourceERad)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.IsRequested(ctx, entity.SourceJGrants)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.ClearRequested(ctx, entity.SourceERad))
	ok, err = m.IsRequested(ctx, entity.SourceERad)
	require.NoError(t, err)
	assert.False(t, ok)

	runID := uuid.New()
	require.NoError(t, m.MarkPending(ctx, runID, time.Minute))
	ok, err = m.IsPending(ctx, runID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.ClearPending(ctx, runID))
	ok, err = m.IsPending(ctx, runID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkerExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMarkerRepo(testClient(t))

	require.NoError(t, m.MarkRequested(ctx, entity.SourceJGrants, time.Second))
	require.Eventually(t, func() bool {
		ok, err := m.IsRequested(ctx, entity.SourceJGrants)
		return err == nil && !ok
	}, 3*time.Second, 100*time.Millisecond)
}
