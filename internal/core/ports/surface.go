package ports

import "github.com/samirrijal/geoportal/internal/core/domain"

// MapSurface is the host map. Implementations translate these calls into
// their rendering library; every call must be idempotent for identical input.
type MapSurface interface {
	AddLayer(layer domain.Layer) error
	UpdateLayer(layer domain.Layer) error
	RemoveLayer(id string) error
	FitBounds(fit domain.FitInstruction) error
}
