package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/ports"
	"github.com/samirrijal/geoportal/internal/pkg/metrics"
	"github.com/samirrijal/geoportal/internal/pkg/telemetry"
)

// BoundaryService reads the administrative boundary catalogue.
type BoundaryService struct {
	boundaries ports.BoundaryRepository
	cache      ports.CacheService
}

// NewBoundaryService creates a new BoundaryService. cache may be nil.
func NewBoundaryService(boundaries ports.BoundaryRepository, cache ports.CacheService) *BoundaryService {
	return &BoundaryService{boundaries: boundaries, cache: cache}
}

// ListByLevel returns boundaries of one level, optionally under a parent.
func (s *BoundaryService) ListByLevel(ctx context.Context, level domain.BoundaryLevel, parentID string, limit int) ([]domain.AdministrativeBoundary, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	q := ports.BoundaryQuery{Level: level, ParentID: parentID, Limit: limit}
	key := fmt.Sprintf("boundaries:level:%s:%s:%d", level, parentID, limit)

	// Boundaries change only on catalogue reloads; cache for an hour
	return s.cachedList(ctx, key, "list", 3600, q)
}

// Search finds boundaries whose name matches query.
func (s *BoundaryService) Search(ctx context.Context, query string, level domain.BoundaryLevel, limit int) ([]domain.AdministrativeBoundary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	q := ports.BoundaryQuery{Level: level, Text: query, Limit: limit}
	key := fmt.Sprintf("boundaries:search:%s:%s:%d", strings.ToLower(query), level, limit)
	return s.cachedList(ctx, key, "search", 300, q)
}

// GetByID returns a single boundary.
func (s *BoundaryService) GetByID(ctx context.Context, id string) (*domain.AdministrativeBoundary, error) {
	key := "boundaries:id:" + id
	if b, ok := getCached[domain.AdministrativeBoundary](ctx, s.cache, key, "get"); ok {
		return &b, nil
	}

	b, err := s.boundaries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	setCached(ctx, s.cache, key, b, 3600)
	return b, nil
}

// GetByIDs returns the boundaries with the given ids, ordered by id.
func (s *BoundaryService) GetByIDs(ctx context.Context, ids []string) ([]domain.AdministrativeBoundary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	key := "boundaries:ids:" + strings.Join(sorted, ",")
	if bs, ok := getCached[[]domain.AdministrativeBoundary](ctx, s.cache, key, "get_many"); ok {
		return bs, nil
	}

	bs, err := s.boundaries.GetByIDs(ctx, sorted)
	if err != nil {
		return nil, err
	}
	setCached(ctx, s.cache, key, bs, 3600)
	return bs, nil
}

// Invalidate drops cached lookups of the given boundaries after a catalogue
// reload. List and search results expire on their own.
func (s *BoundaryService) Invalidate(ctx context.Context, ids ...string) error {
	if s.cache == nil {
		return nil
	}
	for _, id := range ids {
		if err := s.cache.Delete(ctx, "boundaries:id:"+id); err != nil {
			return fmt.Errorf("invalidate %s: %w", id, err)
		}
	}
	return nil
}

func (s *BoundaryService) cachedList(ctx context.Context, key, op string, ttl int, q ports.BoundaryQuery) ([]domain.AdministrativeBoundary, error) {
	if bs, ok := getCached[[]domain.AdministrativeBoundary](ctx, s.cache, key, op); ok {
		return bs, nil
	}
	ctx, span := telemetry.Tracer("geoportal/boundaries").Start(ctx, telemetry.SpanBoundaryQuery)
	defer span.End()
	span.SetAttributes(attribute.String("boundaries.op", op), attribute.String("boundaries.level", string(q.Level)))

	bs, err := s.boundaries.List(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	setCached(ctx, s.cache, key, bs, ttl)
	return bs, nil
}

func getCached[T any](ctx context.Context, cache ports.CacheService, key, op string) (T, bool) {
	var v T
	if cache == nil {
		return v, false
	}
	data, err := cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return v, false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return v, true
}

func setCached(ctx context.Context, cache ports.CacheService, key string, v any, ttl int) {
	if cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = cache.Set(ctx, key, data, ttl)
	}
}
