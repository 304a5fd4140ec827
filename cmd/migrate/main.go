package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/geoportal/internal/adapters/postgres"
	"github.com/samirrijal/geoportal/internal/adapters/valkey"
	"github.com/samirrijal/geoportal/internal/core/crs"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/usecases"
	"github.com/samirrijal/geoportal/internal/pkg/config"
	"github.com/samirrijal/geoportal/internal/pkg/logging"
)

const seedBatchSize = 200

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|seed <boundaries.geojson>>")
	}

	cfg, err := config.Load("geoportal-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("geoportal-migrate", cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		runMigrations(ctx, pool)
	case "down":
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS admin_boundaries"); err != nil {
			log.Fatalf("down: %v", err)
		}
		log.Println("admin_boundaries dropped")
	case "seed":
		if len(os.Args) < 3 {
			log.Fatal("usage: migrate seed <boundaries.geojson>")
		}
		ids, err := seedBoundaries(ctx, &postgres.DB{Pool: pool}, os.Args[2])
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		slog.Info("boundaries seeded", "count", len(ids), "file", os.Args[2])
		invalidateCache(ctx, cfg.Valkey.Addr, ids)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) {
	files := []string{
		"migrations/001_init_extensions.sql",
		"migrations/002_admin_boundaries.sql",
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		_, err = pool.Exec(ctx, string(data))
		if err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}

// seedBoundaries loads a WGS84 FeatureCollection into the boundary
// catalogue and returns the upserted ids. Each feature needs id, name and
// level properties; parent_id and area_km2 are optional.
func seedBoundaries(ctx context.Context, db *postgres.DB, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	bs := make([]domain.AdministrativeBoundary, 0, len(fc.Features))
	ids := make([]string, 0, len(fc.Features))
	for i, f := range fc.Features {
		b, err := boundaryFromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		bs = append(bs, b)
		ids = append(ids, b.ID)
	}

	repo := postgres.NewBoundaryRepo(db)
	for start := 0; start < len(bs); start += seedBatchSize {
		end := min(start+seedBatchSize, len(bs))
		if err := repo.UpsertBatch(ctx, bs[start:end]); err != nil {
			return nil, fmt.Errorf("batch at %d: %w", start, err)
		}
	}
	return ids, nil
}

// invalidateCache drops stale per-boundary cache entries left by the API.
// A missing cache is not an error.
func invalidateCache(ctx context.Context, addr string, ids []string) {
	cache, err := valkey.New(addr, "geoportal:")
	if err != nil {
		slog.Warn("valkey unavailable, cached boundaries expire on their own", "error", err)
		return
	}
	defer cache.Close()

	if err := usecases.NewBoundaryService(nil, cache).Invalidate(ctx, ids...); err != nil {
		slog.Warn("cache invalidation failed", "error", err)
	}
}

func boundaryFromFeature(f *geojson.Feature) (domain.AdministrativeBoundary, error) {
	b := domain.AdministrativeBoundary{
		ID:       f.Properties.MustString("id", ""),
		Name:     f.Properties.MustString("name", ""),
		Level:    domain.BoundaryLevel(f.Properties.MustString("level", "")),
		ParentID: f.Properties.MustString("parent_id", ""),
		Geometry: domain.Geometry{CRS: crs.WGS84, Shape: f.Geometry},
	}
	if b.ID == "" || b.Name == "" {
		return b, fmt.Errorf("id and name properties are required")
	}
	switch b.Level {
	case domain.LevelCountry, domain.LevelProvince, domain.LevelDistrict, domain.LevelWard:
	default:
		return b, fmt.Errorf("%s: unknown level %q", b.ID, b.Level)
	}
	if !b.Geometry.IsPolygonal() {
		return b, fmt.Errorf("%s: geometry must be a polygon or multipolygon", b.ID)
	}
	if v, ok := f.Properties["area_km2"].(float64); ok {
		b.AreaKm2 = &v
	}
	return b, nil
}
