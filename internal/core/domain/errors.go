package domain

import "errors"

// Geometry errors. GeometryEngine wraps these with context; callers test with errors.Is.
var (
	ErrInvalidGeometry    = errors.New("invalid geometry")
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	ErrEmptyGeometry      = errors.New("empty geometry")
)

// ErrUnknownCoordinateSystem signals a registry/consumer mismatch. It is a
// configuration error, not something a user can fix by retrying.
var ErrUnknownCoordinateSystem = errors.New("unknown coordinate system")

// ErrDrawingFailed is the recoverable error attached to a DrawingFailed event.
var ErrDrawingFailed = errors.New("drawing failed")

var (
	ErrAOINotFound       = errors.New("area of interest not found")
	ErrBoundaryNotFound  = errors.New("boundary not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
)

// IsGeometryError reports whether err stems from rejected user geometry
// (as opposed to a configuration or infrastructure failure).
func IsGeometryError(err error) bool {
	return errors.Is(err, ErrInvalidGeometry) ||
		errors.Is(err, ErrDegenerateGeometry) ||
		errors.Is(err, ErrEmptyGeometry)
}
