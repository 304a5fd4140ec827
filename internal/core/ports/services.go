package ports

import (
	"context"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// EventPublisher publishes workspace events to a message broker.
type EventPublisher interface {
	PublishAOIEvent(ctx context.Context, event domain.AOIEvent) error
	PublishImportResult(ctx context.Context, result domain.ImportResult) error
}

// ImportSubscriber delivers finished file imports.
type ImportSubscriber interface {
	SubscribeImports(ctx context.Context, handler func(ctx context.Context, result domain.ImportResult) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// GeometryParser is the remote collaborator that turns uploaded files
// (GeoJSON, shapefile archives) into geometry.
type GeometryParser interface {
	Parse(ctx context.Context, fileRef, filename string) (domain.Geometry, error)
}

// ImportStarter launches an asynchronous file import.
type ImportStarter interface {
	StartImport(ctx context.Context, req domain.ImportRequest) (runID string, err error)
}
