//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/adapters/http"
	"github.com/samirrijal/geoportal/internal/adapters/postgres"
	"github.com/samirrijal/geoportal/internal/core/crs"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/usecases"
	"github.com/samirrijal/geoportal/internal/pkg/config"
)

// setupTestDB connects to the test database. The schema must already be
// migrated.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("geoportal-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}
	return db
}

// setupTestDeps wires the real boundary repository, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	d := makeDeps()
	d.Boundaries = usecases.NewBoundaryService(postgres.NewBoundaryRepo(db), nil)
	d.DB = db
	return d
}

// seedBoundaries upserts two provinces under a unique country prefix.
func seedBoundaries(t *testing.T, db *postgres.DB, prefix string) {
	ring := func(x, y float64) orb.Ring {
		return orb.Ring{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}
	}
	bs := []domain.AdministrativeBoundary{
		{ID: prefix + "-ha", Name: "Harare " + prefix, Level: domain.LevelProvince, ParentID: prefix,
			Geometry: domain.NewPolygon(crs.WGS84, ring(30.5, -18.2))},
		{ID: prefix + "-bu", Name: "Bulawayo " + prefix, Level: domain.LevelProvince, ParentID: prefix,
			Geometry: domain.NewPolygon(crs.WGS84, ring(28.3, -20.4))},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := postgres.NewBoundaryRepo(db).UpsertBatch(ctx, bs); err != nil {
		t.Fatalf("seed boundaries: %v", err)
	}
}

func TestListBoundaries_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	prefix := "it" + time.Now().Format("150405")
	seedBoundaries(t, db, prefix)
	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("GET", "/v1/boundaries?level=province&parent="+prefix, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data []domain.AdministrativeBoundary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.Data) != 2 {
		t.Fatalf("expected 2 provinces, got %d", len(result.Data))
	}
	for _, b := range result.Data {
		if b.AreaKm2 == nil || *b.AreaKm2 <= 0 {
			t.Errorf("%s: expected a computed area", b.ID)
		}
		if b.Geometry.Shape == nil {
			t.Errorf("%s: expected geometry", b.ID)
		}
	}
}

func TestBoundaryOverlay_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	prefix := "ov" + time.Now().Format("150405")
	seedBoundaries(t, db, prefix)
	app := setupApp(setupTestDeps(t, db))
	ws := createWorkspace(t, app)

	body := `{"ids":["` + prefix + `-ha","` + prefix + `-bu"],"focal":"` + prefix + `-ha"}`
	req := httptest.NewRequest("PUT", "/v1/workspaces/"+ws+"/boundaries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	layers := decode[layersBody](t, do(t, app, "GET", "/v1/workspaces/"+ws+"/layers", ""))
	if len(layers.Layers.Features) != 2 {
		t.Errorf("expected 2 boundary layers, got %d", len(layers.Layers.Features))
	}
}
