package drawing_test

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/core/crs"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/drawing"
)

type recorder struct {
	events []drawing.Event
}

func (r *recorder) listen(e drawing.Event) { r.events = append(r.events, e) }

func (r *recorder) count(kind drawing.EventKind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newSession() (*drawing.Session, *recorder) {
	s := drawing.NewSession(crs.WGS84)
	r := &recorder{}
	s.Subscribe(r.listen)
	return s, r
}

func harareCircle() drawing.RawShape {
	return drawing.RawShape{Mode: drawing.ModeCircle, Center: orb.Point{31.0335, -17.8252}, RadiusMeters: 5000}
}

func TestSession_StartsIdle(t *testing.T) {
	s, _ := newSession()
	state, mode := s.State()
	if state != drawing.StateIdle || mode != drawing.ModeNone {
		t.Errorf("expected idle/none, got %s/%s", state, mode)
	}
}

func TestSession_CircleCompletes(t *testing.T) {
	s, r := newSession()
	if err := s.SelectTool(drawing.ModeCircle); err != nil {
		t.Fatalf("select: %v", err)
	}

	var seenState drawing.State
	s.Subscribe(func(e drawing.Event) {
		if e.Kind == drawing.EventShapeCompleted {
			seenState, _ = s.State()
		}
	})

	g, err := s.Complete(harareCircle())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if g.Kind() != domain.KindPolygon || g.CRS != crs.WGS84 {
		t.Fatalf("expected wgs84 polygon, got %s/%s", g.Kind(), g.CRS)
	}
	if n := len(g.Shape.(orb.Polygon)[0]); n != 65 {
		t.Errorf("expected 65 points, got %d", n)
	}
	if r.count(drawing.EventShapeCompleted) != 1 {
		t.Errorf("expected one completion event, got %d", r.count(drawing.EventShapeCompleted))
	}
	if seenState != drawing.StateShapeCompleted {
		t.Errorf("expected listeners to observe shape_completed, got %s", seenState)
	}

	state, mode := s.State()
	if state != drawing.StateIdle || mode != drawing.ModeNone {
		t.Errorf("expected one-shot return to idle, got %s/%s", state, mode)
	}
}

func TestSession_SwitchToolDiscardsShape(t *testing.T) {
	s, r := newSession()
	_ = s.SelectTool(drawing.ModeCircle)
	if err := s.Begin("leaflet-42"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = s.SelectTool(drawing.ModeRectangle)

	// The host finishes the abandoned circle gesture late.
	stale := harareCircle()
	stale.ShapeID = "leaflet-42"
	if _, err := s.Complete(stale); !errors.Is(err, drawing.ErrStaleGesture) {
		t.Errorf("expected ErrStaleGesture, got %v", err)
	}

	if r.count(drawing.EventShapeCompleted) != 0 {
		t.Errorf("expected no completion for the discarded shape")
	}
	state, mode := s.State()
	if state != drawing.StateDrawing || mode != drawing.ModeRectangle {
		t.Errorf("expected drawing/rectangle, got %s/%s", state, mode)
	}
}

func TestSession_DegenerateCircleFails(t *testing.T) {
	s, r := newSession()
	_ = s.SelectTool(drawing.ModeCircle)

	_, err := s.Complete(drawing.RawShape{Center: orb.Point{0, 89.95}, RadiusMeters: 1000})
	if !errors.Is(err, domain.ErrDrawingFailed) || !errors.Is(err, domain.ErrDegenerateGeometry) {
		t.Fatalf("expected drawing failure wrapping degenerate geometry, got %v", err)
	}
	if r.count(drawing.EventDrawingFailed) != 1 {
		t.Errorf("expected one failure event")
	}
	if state, _ := s.State(); state != drawing.StateIdle {
		t.Errorf("expected idle after failure, got %s", state)
	}
}

func TestSession_ZeroRadiusFails(t *testing.T) {
	s, r := newSession()
	_ = s.SelectTool(drawing.ModeCircle)
	_, err := s.Complete(drawing.RawShape{Center: orb.Point{31, -17}})
	if !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Fatalf("expected invalid geometry, got %v", err)
	}
	if r.count(drawing.EventDrawingFailed) != 1 {
		t.Errorf("expected failure event")
	}
}

func TestSession_CircleFromEdgePoint(t *testing.T) {
	s, _ := newSession()
	_ = s.SelectTool(drawing.ModeCircle)
	edge := orb.Point{31.0335, -17.7802} // ~5 km north
	g, err := s.Complete(drawing.RawShape{Center: orb.Point{31.0335, -17.8252}, Edge: &edge})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := g.Shape.Bound()
	if b.Max[1] < -17.781 || b.Max[1] > -17.779 {
		t.Errorf("expected northern extent near the edge point, got %v", b.Max[1])
	}
}

func TestSession_RectangleAnyCornerOrder(t *testing.T) {
	s, _ := newSession()
	_ = s.SelectTool(drawing.ModeRectangle)
	g, err := s.Complete(drawing.RawShape{CornerA: orb.Point{30, -18}, CornerB: orb.Point{28, -20}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := domain.BoundsFromOrb(g.Shape.Bound())
	if b.Array() != [4]float64{28, -20, 30, -18} {
		t.Errorf("unexpected bounds %v", b.Array())
	}
}

func TestSession_PolygonIsClosed(t *testing.T) {
	for _, mode := range []drawing.Mode{drawing.ModePolygon, drawing.ModeFreehand} {
		s, _ := newSession()
		_ = s.SelectTool(mode)
		g, err := s.Complete(drawing.RawShape{Vertices: orb.Ring{{30, -18}, {31, -18}, {31, -17}}})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", mode, err)
		}
		ring := g.Shape.(orb.Polygon)[0]
		if len(ring) != 4 || !ring.Closed() {
			t.Errorf("%s: expected closed ring of 4, got %v", mode, ring)
		}
	}
}

func TestSession_CompleteWhileIdle(t *testing.T) {
	s, r := newSession()
	if _, err := s.Complete(harareCircle()); !errors.Is(err, drawing.ErrNotDrawing) {
		t.Errorf("expected ErrNotDrawing, got %v", err)
	}
	if len(r.events) != 0 {
		t.Errorf("expected no events, got %d", len(r.events))
	}
}

func TestSession_CancelFromAnyState(t *testing.T) {
	s, _ := newSession()
	s.Cancel()
	if state, _ := s.State(); state != drawing.StateIdle {
		t.Fatalf("expected idle, got %s", state)
	}

	_ = s.SelectTool(drawing.ModePolygon)
	_ = s.Progress(drawing.RawShape{Vertices: orb.Ring{{0, 0}, {1, 0}, {1, 1}}})
	s.Cancel()
	state, mode := s.State()
	if state != drawing.StateIdle || mode != drawing.ModeNone {
		t.Errorf("expected idle/none, got %s/%s", state, mode)
	}
	if _, ok := s.Preview(); ok {
		t.Error("expected preview discarded on cancel")
	}
	if s.ActiveShapeID() != "" {
		t.Error("expected no active shape after cancel")
	}
}

func TestSession_SelectNoneCancels(t *testing.T) {
	s, _ := newSession()
	_ = s.SelectTool(drawing.ModeCircle)
	if err := s.SelectTool(drawing.ModeNone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state, _ := s.State(); state != drawing.StateIdle {
		t.Errorf("expected idle, got %s", state)
	}
	if err := s.SelectTool("hexagon"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSession_Preview(t *testing.T) {
	s, r := newSession()
	_ = s.SelectTool(drawing.ModeRectangle)

	if err := s.Progress(drawing.RawShape{CornerA: orb.Point{28, -20}, CornerB: orb.Point{29, -19}}); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if _, ok := s.Preview(); !ok {
		t.Fatal("expected preview")
	}

	// A degenerate intermediate shape clears the preview without failing.
	if err := s.Progress(drawing.RawShape{CornerA: orb.Point{28, -20}, CornerB: orb.Point{28, -20}}); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if _, ok := s.Preview(); ok {
		t.Error("expected preview cleared")
	}
	if r.count(drawing.EventDrawingFailed) != 0 {
		t.Error("progress must not report drawing failures")
	}
	if r.count(drawing.EventPreviewChanged) != 2 {
		t.Errorf("expected 2 preview events, got %d", r.count(drawing.EventPreviewChanged))
	}
}

func TestSession_ListenerReselectsTool(t *testing.T) {
	s, _ := newSession()
	s.Subscribe(func(e drawing.Event) {
		if e.Kind == drawing.EventShapeCompleted {
			_ = s.SelectTool(drawing.ModeCircle)
		}
	})
	_ = s.SelectTool(drawing.ModeCircle)
	if _, err := s.Complete(harareCircle()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, mode := s.State()
	if state != drawing.StateDrawing || mode != drawing.ModeCircle {
		t.Errorf("expected explicit reselection to stick, got %s/%s", state, mode)
	}
}
