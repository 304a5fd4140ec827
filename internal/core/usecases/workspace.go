package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geoportal/internal/core/aoi"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/drawing"
	"github.com/samirrijal/geoportal/internal/core/overlay"
	"github.com/samirrijal/geoportal/internal/core/ports"
	"github.com/samirrijal/geoportal/internal/pkg/geospatial"
	"github.com/samirrijal/geoportal/internal/pkg/metrics"
	"github.com/samirrijal/geoportal/internal/pkg/telemetry"
)

// MsgCouldNotCreate is the user-facing message for a rejected shape.
const MsgCouldNotCreate = "could not create this area"

// CoordinateSystems resolves and lists registered coordinate systems.
type CoordinateSystems interface {
	Get(id string) (domain.CoordinateSystem, error)
	List() []domain.CoordinateSystem
}

// Result reports the outcome of an AOI-creating action. A failed Result is
// recoverable: the user may retry.
type Result struct {
	OK      bool     `json:"ok"`
	AOI     *aoi.AOI `json:"aoi,omitempty"`
	Message string   `json:"message,omitempty"`
	Err     error    `json:"-"`
}

func failed(err error) Result {
	return Result{Message: MsgCouldNotCreate, Err: err}
}

// CoordinateEntry is a typed-in rectangle. SW and NE are [x, y] in the
// units of CRS: lon/lat degrees or easting/northing meters.
type CoordinateEntry struct {
	CRS  string
	Name string
	SW   orb.Point
	NE   orb.Point
}

// Summary is the selection summary shown next to the map.
type Summary struct {
	ID            string        `json:"id"`
	AOIs          []aoi.AOI     `json:"aois"`
	Count         int           `json:"count"`
	TotalArea     float64       `json:"total_area_km2"`
	State         drawing.State `json:"state"`
	Mode          drawing.Mode  `json:"mode"`
	ActiveShapeID string        `json:"active_shape_id,omitempty"`
	FocalAOI      string        `json:"focal_aoi,omitempty"`
	FocalBoundary string        `json:"focal_boundary,omitempty"`
	Preview       bool          `json:"preview_visible"`
}

// WorkspaceConfig holds per-workspace drawing and overlay settings.
type WorkspaceConfig struct {
	Segments int
	Overlay  overlay.Config
	Palette  *overlay.Palette
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithEventPublisher publishes AOI lifecycle events. Publishing is best
// effort.
func WithEventPublisher(p ports.EventPublisher) WorkspaceOption {
	return func(w *Workspace) { w.events = p }
}

// WithWorkspaceLogger sets the workspace logger.
func WithWorkspaceLogger(l *slog.Logger) WorkspaceOption {
	return func(w *Workspace) { w.log = l }
}

// WithStoreOptions forwards options to the AOI store.
func WithStoreOptions(opts ...aoi.Option) WorkspaceOption {
	return func(w *Workspace) { w.storeOpts = append(w.storeOpts, opts...) }
}

// Workspace is one user's session: a drawing session, an AOI store and an
// overlay manager wired together. Every mutation re-reconciles the overlay.
// It is not safe for concurrent use; see WorkspaceRegistry.
type Workspace struct {
	id        string
	systems   CoordinateSystems
	cfg       WorkspaceConfig
	session   *drawing.Session
	store     *aoi.Store
	overlay   *overlay.Manager
	events    ports.EventPublisher
	log       *slog.Logger
	tracer    trace.Tracer
	storeOpts []aoi.Option
	now       func() time.Time
}

// NewWorkspace wires a workspace rendering onto surface.
func NewWorkspace(id string, systems CoordinateSystems, surface ports.MapSurface, cfg WorkspaceConfig, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		id:      id,
		systems: systems,
		cfg:     cfg,
		log:     slog.Default(),
		tracer:  telemetry.Tracer("geoportal/workspace"),
		now:     time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	w.log = w.log.With("workspace_id", id)

	w.session = drawing.NewSession(cfg.Overlay.DisplayCRS,
		drawing.WithSegments(cfg.Segments),
		drawing.WithLogger(w.log),
	)
	w.store = aoi.NewStore(systems, w.storeOpts...)

	overlayOpts := []overlay.Option{
		overlay.WithLogger(w.log),
		overlay.WithFailureHook(func(f overlay.RenderFailure) {
			metrics.RenderFailures.WithLabelValues(f.Kind).Inc()
		}),
	}
	if cfg.Palette != nil {
		overlayOpts = append(overlayOpts, overlay.WithPalette(*cfg.Palette))
	}
	w.overlay = overlay.NewManager(surface, systems, cfg.Overlay, overlayOpts...)

	w.session.Subscribe(w.onSessionEvent)
	return w
}

// ID returns the workspace id.
func (w *Workspace) ID() string { return w.id }

func (w *Workspace) onSessionEvent(e drawing.Event) {
	switch e.Kind {
	case drawing.EventPreviewChanged:
		if err := w.overlay.SetPreview(e.Geometry); err != nil {
			w.log.Warn("preview render failed", "error", err)
		}
	case drawing.EventDrawingFailed:
		metrics.DrawingFailures.WithLabelValues(string(e.Mode)).Inc()
	}
}

// SelectTool activates a drawing tool, discarding any unfinished shape.
func (w *Workspace) SelectTool(mode drawing.Mode) error {
	return w.session.SelectTool(mode)
}

// CancelDrawing abandons the current tool. It always succeeds.
func (w *Workspace) CancelDrawing() {
	w.session.Cancel()
}

// BeginGesture binds the host's identity for the shape about to be drawn.
// An empty shapeID keeps the identity issued by SelectTool. Gestures tagged
// with any other identity are rejected as stale.
func (w *Workspace) BeginGesture(shapeID string) (string, error) {
	if err := w.session.Begin(shapeID); err != nil {
		return "", err
	}
	return w.session.ActiveShapeID(), nil
}

// GestureProgress updates the drawing preview.
func (w *Workspace) GestureProgress(raw drawing.RawShape) error {
	return w.session.Progress(raw)
}

// CompleteGesture turns a finished gesture into an AOI. Gestures that do not
// belong to the active shape return an error; shapes that fail to normalize
// return a failed Result.
func (w *Workspace) CompleteGesture(ctx context.Context, raw drawing.RawShape) (Result, error) {
	ctx, span := w.tracer.Start(ctx, telemetry.SpanCompleteGesture)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrWorkspaceID, w.id))

	_, mode := w.session.State()
	g, err := w.session.Complete(raw)
	switch {
	case errors.Is(err, domain.ErrDrawingFailed):
		return failed(err), nil
	case err != nil:
		return Result{}, err
	}

	t, err := typeForMode(mode)
	if err != nil {
		return Result{}, err
	}
	return w.add(ctx, t, g, g.CRS, aoi.Metadata{})
}

// ApplyCoordinates creates a rectangle AOI from typed-in corners.
func (w *Workspace) ApplyCoordinates(ctx context.Context, entry CoordinateEntry) (Result, error) {
	ctx, span := w.tracer.Start(ctx, telemetry.SpanApplyCoords)
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrWorkspaceID, w.id),
		attribute.String(telemetry.AttrCRS, entry.CRS),
	)

	if _, err := w.systems.Get(entry.CRS); err != nil {
		return Result{}, err
	}
	poly, err := geospatial.BoundsToPolygon(entry.SW, entry.NE)
	if err != nil {
		w.log.Warn("coordinate entry rejected", "crs", entry.CRS, "error", err)
		return failed(err), nil
	}
	g := domain.Geometry{CRS: entry.CRS, Shape: poly}
	return w.add(ctx, aoi.TypeRectangle, g, entry.CRS, aoi.Metadata{Name: entry.Name})
}

// ImportFile adds already-parsed file geometry as a file AOI.
func (w *Workspace) ImportFile(ctx context.Context, filename string, g domain.Geometry, uploadedAt time.Time) (Result, error) {
	ctx, span := w.tracer.Start(ctx, telemetry.SpanImportFile)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrWorkspaceID, w.id))

	if g.CRS == "" {
		g.CRS = w.cfg.Overlay.DisplayCRS
	}
	if uploadedAt.IsZero() {
		uploadedAt = w.now()
	}
	res, err := w.add(ctx, aoi.TypeFile, g, g.CRS, aoi.Metadata{Filename: filename, UploadedAt: uploadedAt})
	switch {
	case err != nil:
		w.ReportImportFailure(ctx, filename, err.Error())
	case !res.OK:
		w.ReportImportFailure(ctx, filename, res.Err.Error())
	}
	return res, err
}

// ReportImportFailure tells the user a file could not become an AOI so
// they can retry the upload.
func (w *Workspace) ReportImportFailure(ctx context.Context, filename, reason string) {
	w.log.Warn("file import failed", "filename", filename, "error", reason)
	w.publishEvent(ctx, domain.AOIEvent{
		Kind:     domain.AOIImportFailed,
		Message:  MsgCouldNotCreate,
		Filename: filename,
		Error:    reason,
	})
}

func (w *Workspace) add(ctx context.Context, t aoi.Type, g domain.Geometry, csID string, meta aoi.Metadata) (Result, error) {
	a, err := w.store.Add(t, g, csID, meta)
	switch {
	case errors.Is(err, domain.ErrUnknownCoordinateSystem):
		return Result{}, err
	case err != nil:
		w.log.Warn("area rejected", "type", t, "error", err)
		return failed(err), nil
	}

	metrics.AOIsCreated.WithLabelValues(string(t)).Inc()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String(telemetry.AttrAOIType, string(t)))
	w.log.Info("area created", "aoi_id", a.ID(), "type", t, "area_km2", a.Area())
	w.render()

	payload, _ := json.Marshal(a)
	w.publish(ctx, domain.AOICreated, a.ID(), payload)
	return Result{OK: true, AOI: &a}, nil
}

// Remove deletes an AOI.
func (w *Workspace) Remove(ctx context.Context, id string) error {
	if err := w.store.Remove(id); err != nil {
		return err
	}
	w.render()
	w.publish(ctx, domain.AOIRemoved, id, nil)
	return nil
}

// Reset removes every AOI and cancels drawing.
func (w *Workspace) Reset(ctx context.Context) {
	w.session.Cancel()
	w.store.Clear()
	w.render()
	w.publish(ctx, domain.AOICleared, "", nil)
}

// Focus makes an AOI focal and fits the view to it; "" clears the focus.
func (w *Workspace) Focus(ctx context.Context, id string) error {
	if err := w.overlay.SetFocalAOI(id); err != nil {
		return err
	}
	w.publish(ctx, domain.AOIFocal, id, nil)
	return nil
}

// SetBoundaries replaces the rendered boundary set.
func (w *Workspace) SetBoundaries(boundaries []domain.AdministrativeBoundary, visible domain.VisibilitySet) error {
	return w.overlay.SetBoundaries(boundaries, visible)
}

// SetFocalBoundary makes a visible boundary focal; "" clears it.
func (w *Workspace) SetFocalBoundary(id string) error {
	return w.overlay.SetFocalBoundary(id)
}

// SetDrawingPreviewVisible toggles the drawing preview layer.
func (w *Workspace) SetDrawingPreviewVisible(visible bool) error {
	return w.overlay.SetDrawingPreviewVisible(visible)
}

// AOIs returns the AOIs in creation order.
func (w *Workspace) AOIs() []aoi.AOI { return w.store.List() }

// AOI returns one AOI.
func (w *Workspace) AOI(id string) (aoi.AOI, error) {
	a, ok := w.store.Get(id)
	if !ok {
		return aoi.AOI{}, fmt.Errorf("%w: %s", domain.ErrAOINotFound, id)
	}
	return a, nil
}

// TotalArea returns the summed area of all AOIs in km².
func (w *Workspace) TotalArea() float64 { return w.store.TotalArea() }

// Layers returns the rendered layers.
func (w *Workspace) Layers() []domain.Layer { return w.overlay.Layers() }

// LastFit returns the most recent fit instruction.
func (w *Workspace) LastFit() (domain.FitInstruction, bool) { return w.overlay.LastFit() }

// RenderFailures returns the features skipped by the last render.
func (w *Workspace) RenderFailures() []overlay.RenderFailure { return w.overlay.Failures() }

// Summary returns the selection summary.
func (w *Workspace) Summary() Summary {
	state, mode := w.session.State()
	list := w.store.List()
	return Summary{
		ID:            w.id,
		AOIs:          list,
		Count:         len(list),
		TotalArea:     w.store.TotalArea(),
		State:         state,
		Mode:          mode,
		ActiveShapeID: w.session.ActiveShapeID(),
		FocalAOI:      w.overlay.FocalAOI(),
		FocalBoundary: w.overlay.FocalBoundary(),
		Preview:       w.overlay.PreviewVisible(),
	}
}

// render pushes the store into the overlay. Surface errors are logged; the
// AOI list stays authoritative and the next render retries.
func (w *Workspace) render() {
	if err := w.overlay.SetAOIs(w.store.List()); err != nil {
		w.log.Warn("overlay render failed", "error", err)
	}
}

func (w *Workspace) publish(ctx context.Context, kind domain.AOIEventKind, aoiID string, payload []byte) {
	w.publishEvent(ctx, domain.AOIEvent{Kind: kind, AOIID: aoiID, AOI: payload})
}

func (w *Workspace) publishEvent(ctx context.Context, ev domain.AOIEvent) {
	if w.events == nil {
		return
	}
	ev.WorkspaceID = w.id
	ev.TotalArea = w.store.TotalArea()
	ev.At = w.now()
	if err := w.events.PublishAOIEvent(ctx, ev); err != nil {
		w.log.Warn("publish AOI event failed", "event", ev.Kind, "error", err)
	}
}

func typeForMode(m drawing.Mode) (aoi.Type, error) {
	switch m {
	case drawing.ModeRectangle:
		return aoi.TypeRectangle, nil
	case drawing.ModeCircle:
		return aoi.TypeCircle, nil
	case drawing.ModePolygon:
		return aoi.TypePolygon, nil
	case drawing.ModeFreehand:
		return aoi.TypeFreehand, nil
	}
	return "", fmt.Errorf("no AOI type for drawing mode %q", m)
}
