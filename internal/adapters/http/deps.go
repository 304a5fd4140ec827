package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoportal/internal/adapters/postgres"
	"github.com/samirrijal/geoportal/internal/adapters/valkey"
	"github.com/samirrijal/geoportal/internal/core/crs"
	"github.com/samirrijal/geoportal/internal/core/ports"
	"github.com/samirrijal/geoportal/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Systems    *crs.Registry
	Workspaces *usecases.WorkspaceRegistry
	Boundaries *usecases.BoundaryService
	Imports    ports.ImportStarter
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
}
