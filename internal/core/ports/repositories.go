package ports

import (
	"context"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// BoundaryQuery filters the boundary catalogue. Zero values match all.
type BoundaryQuery struct {
	Level    domain.BoundaryLevel
	ParentID string
	Text     string
	Limit    int
}

// BoundaryRepository reads the administrative boundary catalogue.
type BoundaryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.AdministrativeBoundary, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.AdministrativeBoundary, error)
	List(ctx context.Context, q BoundaryQuery) ([]domain.AdministrativeBoundary, error)
}
