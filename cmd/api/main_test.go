package main

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/core/crs"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/overlay"
	"github.com/samirrijal/geoportal/internal/core/ports"
	"github.com/samirrijal/geoportal/internal/core/usecases"
)

type nopSurface struct{}

func (nopSurface) AddLayer(domain.Layer) error           { return nil }
func (nopSurface) UpdateLayer(domain.Layer) error        { return nil }
func (nopSurface) RemoveLayer(string) error              { return nil }
func (nopSurface) FitBounds(domain.FitInstruction) error { return nil }

type mockPublisher struct {
	events []domain.AOIEvent
}

func (m *mockPublisher) PublishAOIEvent(ctx context.Context, ev domain.AOIEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *mockPublisher) PublishImportResult(ctx context.Context, r domain.ImportResult) error {
	return nil
}

func newRegistry(pub *mockPublisher) *usecases.WorkspaceRegistry {
	return usecases.NewWorkspaceRegistry(crs.Default(),
		usecases.WorkspaceConfig{Segments: 64, Overlay: overlay.DefaultConfig(crs.WGS84)},
		func(string) ports.MapSurface { return nopSurface{} },
		usecases.WithEventPublisher(pub),
	)
}

func result(ws string) domain.ImportResult {
	ring := orb.Ring{{30, -18}, {31, -18}, {31, -17}, {30, -17}, {30, -18}}
	return domain.ImportResult{
		ImportRequest: domain.ImportRequest{WorkspaceID: ws, FileRef: "s3://uploads/farm", Filename: "farm.geojson"},
		Geometry:      domain.Geometry{CRS: crs.WGS84, Shape: orb.Polygon{ring}},
		UploadedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestImportHandler_CreatesAOI(t *testing.T) {
	pub := &mockPublisher{}
	reg := newRegistry(pub)
	ws := reg.Create()

	if err := importHandler(reg)(context.Background(), result(ws)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = reg.Do(ws, func(w *usecases.Workspace) error {
		if w.Summary().Count != 1 {
			t.Errorf("expected 1 AOI, got %d", w.Summary().Count)
		}
		return nil
	})
	if len(pub.events) != 1 || pub.events[0].Kind != domain.AOICreated {
		t.Errorf("expected an aoi.created event, got %+v", pub.events)
	}
}

func TestImportHandler_ReportsFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.ImportResult)
	}{
		{"parse failed", func(r *domain.ImportResult) {
			r.Geometry = domain.Geometry{}
			r.Error = "parser: unsupported archive"
		}},
		{"not polygonal", func(r *domain.ImportResult) {
			r.Geometry = domain.Geometry{CRS: crs.WGS84, Shape: orb.Point{30, -18}}
		}},
		{"unknown crs", func(r *domain.ImportResult) {
			r.Geometry.CRS = "epsg:9999"
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &mockPublisher{}
			reg := newRegistry(pub)
			ws := reg.Create()
			r := result(ws)
			tc.mutate(&r)

			if err := importHandler(reg)(context.Background(), r); err != nil {
				t.Fatalf("failures must be acknowledged, got %v", err)
			}
			if len(pub.events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(pub.events))
			}
			ev := pub.events[0]
			if ev.Kind != domain.AOIImportFailed || ev.Message != usecases.MsgCouldNotCreate || ev.Filename != "farm.geojson" {
				t.Errorf("unexpected event %+v", ev)
			}
		})
	}
}

func TestImportHandler_ClosedWorkspace(t *testing.T) {
	pub := &mockPublisher{}
	reg := newRegistry(pub)

	if err := importHandler(reg)(context.Background(), result("gone")); err != nil {
		t.Errorf("expected the result to be dropped, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("expected no events, got %+v", pub.events)
	}
}
