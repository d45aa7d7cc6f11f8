package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
)

func TestGrantQueryNormalizesFilter(t *testing.T) {
	grants := newMemGrantRepo()
	for _, id := range []string{"jgrants_1", "jgrants_2"} {
		g := grant(id, id)
		_, err := grants.Upsert(context.Background(), &g)
		require.NoError(t, err)
	}

	page, err := NewGrantQuery(grants).List(context.Background(), entity.GrantFilter{Page: -3, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, entity.MaxPageLimit, page.Limit)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, map[entity.Source]int{entity.SourceJGrants: 2}, page.SourceCounts)
}

func TestGrantQueryGet(t *testing.T) {
	grants := newMemGrantRepo()
	g := grant("jgrants_1", "補助金A")
	_, err := grants.Upsert(context.Background(), &g)
	require.NoError(t, err)
	q := NewGrantQuery(grants)

	got, err := q.Get(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "補助金A", got.Title)

	_, err = q.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
