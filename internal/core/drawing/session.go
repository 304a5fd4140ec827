// Package drawing implements the drawing-tool state machine. Host map
// adapters translate library events into SelectTool, Progress, Complete and
// Cancel calls; the session has no dependency on any map library.
package drawing

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/pkg/geospatial"
)

// State is the session's lifecycle phase.
type State string

const (
	StateIdle           State = "idle"
	StateDrawing        State = "drawing"
	StateShapeCompleted State = "shape_completed"
)

// Gesture rejections. Neither emits an event.
var (
	ErrNotDrawing   = errors.New("no drawing tool is active")
	ErrStaleGesture = errors.New("gesture belongs to a discarded shape")
)

// EventKind tags session events.
type EventKind string

const (
	EventShapeCompleted EventKind = "shape_completed"
	EventDrawingFailed  EventKind = "drawing_failed"
	EventPreviewChanged EventKind = "preview_changed"
)

// Event is delivered synchronously to listeners. Geometry is set for
// EventShapeCompleted and for a non-empty preview; Err for
// EventDrawingFailed and wraps domain.ErrDrawingFailed.
type Event struct {
	Kind     EventKind
	Mode     Mode
	ShapeID  string
	Geometry *domain.Geometry
	Err      error
}

// Listener receives session events.
type Listener func(Event)

// Option configures a Session.
type Option func(*Session)

// WithSegments sets the circle approximation segment count.
func WithSegments(n int) Option {
	return func(s *Session) { s.segments = n }
}

// WithCoordinateSystem sets the CRS of host map gestures (WGS84 by default).
func WithCoordinateSystem(id string) Option {
	return func(s *Session) { s.crsID = id }
}

// WithLogger sets the logger used for recoverable failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session tracks the active tool and at most one in-progress shape. It is
// not safe for concurrent use.
type Session struct {
	state     State
	mode      Mode
	shapeID   string
	preview   *domain.Geometry
	segments  int
	crsID     string
	listeners []Listener
	log       *slog.Logger
}

// NewSession returns an idle session.
func NewSession(crsID string, opts ...Option) *Session {
	s := &Session{
		state:    StateIdle,
		mode:     ModeNone,
		segments: geospatial.DefaultSegments,
		crsID:    crsID,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener.
func (s *Session) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// State returns the phase and the active mode.
func (s *Session) State() (State, Mode) { return s.state, s.mode }

// ActiveShapeID returns the in-progress shape identity, or "".
func (s *Session) ActiveShapeID() string { return s.shapeID }

// Preview returns the normalized in-progress shape, if any.
func (s *Session) Preview() (domain.Geometry, bool) {
	if s.preview == nil {
		return domain.Geometry{}, false
	}
	return s.preview.Clone(), true
}

// SelectTool activates mode, discarding any unfinished shape. ModeNone is
// equivalent to Cancel.
func (s *Session) SelectTool(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	if mode == ModeNone || mode == "" {
		s.Cancel()
		return nil
	}
	s.discard()
	s.state = StateDrawing
	s.mode = mode
	s.shapeID = uuid.NewString()
	return nil
}

// Begin binds the host's identity for the shape now being drawn. Gestures
// carrying a different ShapeID are treated as stale.
func (s *Session) Begin(shapeID string) error {
	if s.state != StateDrawing {
		return ErrNotDrawing
	}
	if shapeID != "" {
		s.shapeID = shapeID
	}
	return nil
}

// Cancel returns to Idle from any state. It always succeeds.
func (s *Session) Cancel() {
	s.discard()
	s.state = StateIdle
	s.mode = ModeNone
}

// Progress updates the preview for an in-progress gesture. Shapes that do
// not normalize yet simply clear the preview.
func (s *Session) Progress(raw RawShape) error {
	if err := s.accept(raw); err != nil {
		return err
	}
	shape, err := normalize(s.mode, raw, s.segments)
	if err != nil {
		if s.preview != nil {
			s.preview = nil
			s.emit(Event{Kind: EventPreviewChanged, Mode: s.mode, ShapeID: s.shapeID})
		}
		return nil
	}
	g := domain.Geometry{CRS: s.crsID, Shape: shape}
	s.preview = &g
	s.emit(Event{Kind: EventPreviewChanged, Mode: s.mode, ShapeID: s.shapeID, Geometry: &g})
	return nil
}

// Complete normalizes a finished gesture and emits it. The tool is
// one-shot: the session returns to Idle whether normalization succeeds or
// fails. A rejected shape emits EventDrawingFailed and returns an error
// wrapping domain.ErrDrawingFailed.
func (s *Session) Complete(raw RawShape) (domain.Geometry, error) {
	if err := s.accept(raw); err != nil {
		return domain.Geometry{}, err
	}
	mode, shapeID := s.mode, s.shapeID
	if s.preview != nil {
		s.preview = nil
		s.emit(Event{Kind: EventPreviewChanged, Mode: mode, ShapeID: shapeID})
	}

	shape, err := normalize(mode, raw, s.segments)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", domain.ErrDrawingFailed, mode, err)
		s.log.Warn("drawing failed", "mode", mode, "shape_id", shapeID, "error", err)
		s.state, s.mode, s.shapeID = StateIdle, ModeNone, ""
		s.emit(Event{Kind: EventDrawingFailed, Mode: mode, ShapeID: shapeID, Err: err})
		return domain.Geometry{}, err
	}

	g := domain.Geometry{CRS: s.crsID, Shape: shape}
	s.state, s.shapeID = StateShapeCompleted, ""
	s.emit(Event{Kind: EventShapeCompleted, Mode: mode, ShapeID: shapeID, Geometry: &g})

	// A listener may already have selected a new tool.
	if s.state == StateShapeCompleted {
		s.state, s.mode = StateIdle, ModeNone
	}
	return g.Clone(), nil
}

func (s *Session) accept(raw RawShape) error {
	if s.state != StateDrawing {
		return ErrNotDrawing
	}
	if raw.Mode != "" && raw.Mode != s.mode {
		return fmt.Errorf("%w: %s gesture while %s is active", ErrStaleGesture, raw.Mode, s.mode)
	}
	if raw.ShapeID != "" && raw.ShapeID != s.shapeID {
		return fmt.Errorf("%w: shape %s", ErrStaleGesture, raw.ShapeID)
	}
	return nil
}

func (s *Session) discard() {
	hadPreview := s.preview != nil
	mode, shapeID := s.mode, s.shapeID
	s.preview = nil
	s.shapeID = ""
	if hadPreview {
		s.emit(Event{Kind: EventPreviewChanged, Mode: mode, ShapeID: shapeID})
	}
}

func (s *Session) emit(e Event) {
	for _, l := range s.listeners {
		l(e)
	}
}
