package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/ports"
	"github.com/samirrijal/geoportal/internal/core/usecases"
)

// --- Mock BoundaryRepository ---

type mockBoundaryRepo struct {
	getByIDFn  func(ctx context.Context, id string) (*domain.AdministrativeBoundary, error)
	getByIDsFn func(ctx context.Context, ids []string) ([]domain.AdministrativeBoundary, error)
	listFn     func(ctx context.Context, q ports.BoundaryQuery) ([]domain.AdministrativeBoundary, error)
}

func (m *mockBoundaryRepo) GetByID(ctx context.Context, id string) (*domain.AdministrativeBoundary, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockBoundaryRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.AdministrativeBoundary, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockBoundaryRepo) List(ctx context.Context, q ports.BoundaryQuery) ([]domain.AdministrativeBoundary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, q)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func province(id, name string) domain.AdministrativeBoundary {
	ring := orb.Ring{{30, -18}, {31, -18}, {31, -17}, {30, -17}, {30, -18}}
	return domain.AdministrativeBoundary{
		ID:       id,
		Name:     name,
		Level:    domain.LevelProvince,
		Geometry: domain.NewPolygon("wgs84", ring),
	}
}

// --- Tests ---

func TestBoundaryService_ListByLevel_Cached(t *testing.T) {
	calls := 0
	repo := &mockBoundaryRepo{
		listFn: func(ctx context.Context, q ports.BoundaryQuery) ([]domain.AdministrativeBoundary, error) {
			calls++
			if q.Level != domain.LevelProvince || q.Limit != 500 {
				t.Errorf("unexpected query %+v", q)
			}
			return []domain.AdministrativeBoundary{province("zw-ha", "Harare")}, nil
		},
	}
	svc := usecases.NewBoundaryService(repo, newMockCache())
	ctx := context.Background()

	for range 2 {
		bs, err := svc.ListByLevel(ctx, domain.LevelProvince, "", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(bs) != 1 || bs[0].Name != "Harare" {
			t.Fatalf("unexpected boundaries %+v", bs)
		}
		if bs[0].Geometry.Kind() != domain.KindPolygon {
			t.Errorf("geometry must survive the cache, got %q", bs[0].Geometry.Kind())
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 repository call, got %d", calls)
	}
}

func TestBoundaryService_Search(t *testing.T) {
	repo := &mockBoundaryRepo{
		listFn: func(ctx context.Context, q ports.BoundaryQuery) ([]domain.AdministrativeBoundary, error) {
			if q.Text != "hara" || q.Limit != 20 {
				t.Errorf("unexpected query %+v", q)
			}
			return []domain.AdministrativeBoundary{province("zw-ha", "Harare")}, nil
		},
	}
	svc := usecases.NewBoundaryService(repo, nil)

	bs, err := svc.Search(context.Background(), "  hara ", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bs) != 1 {
		t.Errorf("expected 1 result, got %d", len(bs))
	}
	if _, err := svc.Search(context.Background(), " ", "", 0); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestBoundaryService_GetByID(t *testing.T) {
	repo := &mockBoundaryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.AdministrativeBoundary, error) {
			if id == "missing" {
				return nil, domain.ErrBoundaryNotFound
			}
			b := province(id, "Harare")
			return &b, nil
		},
	}
	svc := usecases.NewBoundaryService(repo, newMockCache())

	b, err := svc.GetByID(context.Background(), "zw-ha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID != "zw-ha" {
		t.Errorf("expected zw-ha, got %s", b.ID)
	}
	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrBoundaryNotFound) {
		t.Errorf("expected ErrBoundaryNotFound, got %v", err)
	}
}

func TestBoundaryService_GetByIDs(t *testing.T) {
	var got []string
	repo := &mockBoundaryRepo{
		getByIDsFn: func(ctx context.Context, ids []string) ([]domain.AdministrativeBoundary, error) {
			got = ids
			return nil, nil
		},
	}
	svc := usecases.NewBoundaryService(repo, nil)

	if bs, err := svc.GetByIDs(context.Background(), nil); err != nil || bs != nil {
		t.Errorf("expected nil for no ids, got %v / %v", bs, err)
	}
	if _, err := svc.GetByIDs(context.Background(), []string{"b", "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("expected sorted ids, got %v", got)
	}
}

func TestBoundaryService_Invalidate(t *testing.T) {
	calls := 0
	repo := &mockBoundaryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.AdministrativeBoundary, error) {
			calls++
			b := province(id, "Harare")
			return &b, nil
		},
	}
	svc := usecases.NewBoundaryService(repo, newMockCache())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.GetByID(ctx, "zw-ha"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 repo call before invalidation, got %d", calls)
	}

	if err := svc.Invalidate(ctx, "zw-ha"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := svc.GetByID(ctx, "zw-ha"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected a repo call after invalidation, got %d calls", calls)
	}

	if err := usecases.NewBoundaryService(repo, nil).Invalidate(ctx, "zw-ha"); err != nil {
		t.Errorf("expected no error without a cache, got %v", err)
	}
}
