package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
)

// GrantQuery serves the read side of the listing API.
type GrantQuery interface {
	List(ctx context.Context, filter entity.GrantFilter) (*entity.GrantPage, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Grant, error)
}

type grantQueryUseCase struct {
	grants repository.GrantRepository
}

// NewGrantQuery creates a new GrantQuery use case.
func NewGrantQuery(grants repository.GrantRepository) GrantQuery {
	return &grantQueryUseCase{grants: grants}
}

func (uc *grantQueryUseCase) List(ctx context.Context, filter entity.GrantFilter) (*entity.GrantPage, error) {
	return uc.grants.List(ctx, filter.Normalize())
}

// Get returns repository.ErrNotFound for unknown ids.
func (uc *grantQueryUseCase) Get(ctx context.Context, id uuid.UUID) (*entity.Grant, error) {
	return uc.grants.FindByID(ctx, id)
}
