package natsadapter

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// MapOp names a map surface operation.
type MapOp string

const (
	OpAdd    MapOp = "add"
	OpUpdate MapOp = "update"
	OpRemove MapOp = "remove"
	OpFit    MapOp = "fit"
)

// MapMessage is one surface operation as relayed to the browser.
type MapMessage struct {
	Op      MapOp                  `json:"op"`
	LayerID string                 `json:"layer_id,omitempty"`
	Feature *geojson.Feature       `json:"feature,omitempty"`
	Fit     *domain.FitInstruction `json:"fit,omitempty"`
}

// LayerFeature renders a layer as a GeoJSON feature whose properties carry
// the style and popup.
func LayerFeature(l domain.Layer) *geojson.Feature {
	f := geojson.NewFeature(l.Geometry.Shape)
	f.ID = l.ID
	f.Properties["group"] = string(l.Group)
	f.Properties["source_id"] = l.SourceID
	f.Properties["style"] = l.Style
	f.Properties["popup"] = l.Popup
	f.Properties["popup_text"] = l.Popup.Text()
	return f
}

type msgPublisher interface {
	Publish(subject string, data []byte) error
}

// MapSurface implements ports.MapSurface by publishing operations on
// geoportal.map.<workspace> over core NATS. Delivery is at most once; the
// browser re-syncs from GET /layers on reconnect.
type MapSurface struct {
	nc      msgPublisher
	subject string
}

// NewMapSurface creates a surface for one workspace. nc is usually a
// *nats.Conn.
func NewMapSurface(nc msgPublisher, workspaceID string) *MapSurface {
	return &MapSurface{nc: nc, subject: MapSubject(workspaceID)}
}

func (s *MapSurface) AddLayer(l domain.Layer) error {
	return s.send(MapMessage{Op: OpAdd, LayerID: l.ID, Feature: LayerFeature(l)})
}

func (s *MapSurface) UpdateLayer(l domain.Layer) error {
	return s.send(MapMessage{Op: OpUpdate, LayerID: l.ID, Feature: LayerFeature(l)})
}

func (s *MapSurface) RemoveLayer(id string) error {
	return s.send(MapMessage{Op: OpRemove, LayerID: id})
}

func (s *MapSurface) FitBounds(fit domain.FitInstruction) error {
	return s.send(MapMessage{Op: OpFit, Fit: &fit})
}

func (s *MapSurface) send(m MapMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.Op, err)
	}
	return s.nc.Publish(s.subject, data)
}
