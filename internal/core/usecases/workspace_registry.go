package usecases

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/ports"
	"github.com/samirrijal/geoportal/internal/pkg/metrics"
)

// SurfaceFactory returns the map surface a new workspace renders onto.
type SurfaceFactory func(workspaceID string) ports.MapSurface

type workspaceEntry struct {
	mu sync.Mutex
	ws *Workspace
}

// WorkspaceRegistry owns the open workspaces. Each workspace is used by one
// goroutine at a time through Do.
type WorkspaceRegistry struct {
	mu       sync.RWMutex
	items    map[string]*workspaceEntry
	systems  CoordinateSystems
	cfg      WorkspaceConfig
	surfaces SurfaceFactory
	opts     []WorkspaceOption
	newID    func() string
}

// NewWorkspaceRegistry creates an empty registry.
func NewWorkspaceRegistry(systems CoordinateSystems, cfg WorkspaceConfig, surfaces SurfaceFactory, opts ...WorkspaceOption) *WorkspaceRegistry {
	return &WorkspaceRegistry{
		items:    make(map[string]*workspaceEntry),
		systems:  systems,
		cfg:      cfg,
		surfaces: surfaces,
		opts:     opts,
		newID:    uuid.NewString,
	}
}

// Create opens a new workspace and returns its id.
func (r *WorkspaceRegistry) Create() string {
	id := r.newID()
	ws := NewWorkspace(id, r.systems, r.surfaces(id), r.cfg, r.opts...)

	r.mu.Lock()
	r.items[id] = &workspaceEntry{ws: ws}
	n := len(r.items)
	r.mu.Unlock()

	metrics.WorkspacesActive.Set(float64(n))
	return id
}

// Delete closes a workspace.
func (r *WorkspaceRegistry) Delete(id string) error {
	r.mu.Lock()
	_, ok := r.items[id]
	delete(r.items, id)
	n := len(r.items)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrWorkspaceNotFound, id)
	}
	metrics.WorkspacesActive.Set(float64(n))
	return nil
}

// Do runs fn with exclusive access to the workspace.
func (r *WorkspaceRegistry) Do(id string, fn func(ws *Workspace) error) error {
	r.mu.RLock()
	e, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrWorkspaceNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.ws)
}

// IDs returns the open workspace ids, sorted.
func (r *WorkspaceRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for id := range r.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of open workspaces.
func (r *WorkspaceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
