package natsadapter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

type fakeConn struct {
	subjects []string
	msgs     [][]byte
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.msgs = append(f.msgs, data)
	return nil
}

func TestAOISubject(t *testing.T) {
	if got := AOISubject("ws1", domain.AOICreated); got != "geoportal.aoi.ws1.created" {
		t.Errorf("unexpected subject %s", got)
	}
	if got := MapSubject("ws1"); got != "geoportal.map.ws1" {
		t.Errorf("unexpected subject %s", got)
	}
}

func TestImportResultRoundTrip(t *testing.T) {
	ring := orb.Ring{{30, -18}, {31, -18}, {31, -17}, {30, -17}, {30, -18}}
	in := domain.ImportResult{
		ImportRequest: domain.ImportRequest{WorkspaceID: "ws1", FileRef: "s3://bucket/farm.zip", Filename: "farm.zip", CRS: "wgs84"},
		Geometry:      domain.NewPolygon("wgs84", ring),
		UploadedAt:    time.Date(2026, 5, 4, 3, 2, 1, 500, time.UTC),
	}

	data, err := EncodeImportResult(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeImportResult(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ImportRequest != in.ImportRequest {
		t.Errorf("request mismatch: %+v", out.ImportRequest)
	}
	if !out.UploadedAt.Equal(in.UploadedAt) {
		t.Errorf("expected %v, got %v", in.UploadedAt, out.UploadedAt)
	}
	if !orb.Equal(out.Geometry.Shape, in.Geometry.Shape) {
		t.Errorf("geometry mismatch: %v", out.Geometry.Shape)
	}
}

func TestDecodeImportResult_Rejects(t *testing.T) {
	if _, err := DecodeImportResult([]byte("not protobuf")); err == nil {
		t.Error("expected error for garbage")
	}
	data, _ := EncodeImportResult(domain.ImportResult{Error: "boom"})
	if _, err := DecodeImportResult(data); err == nil {
		t.Error("expected error for missing workspace id")
	}
}

func TestMapSurface_Publishes(t *testing.T) {
	conn := &fakeConn{}
	s := NewMapSurface(conn, "ws1")
	area := 4.0
	l := domain.Layer{
		ID:       "aoi:a1",
		Group:    domain.GroupAOI,
		SourceID: "a1",
		Style:    domain.Style{Color: "#3388ff", Weight: 2},
		Geometry: domain.NewPolygon("wgs84", orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}),
		Popup:    domain.Popup{Title: "Rectangle 1", Kind: "rectangle", AreaKm2: &area},
	}

	if err := s.AddLayer(l); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RemoveLayer(l.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.FitBounds(domain.FitInstruction{Target: l.ID, Bounds: domain.Bounds{MaxX: 1, MaxY: 1}, MaxZoom: 15}); err != nil {
		t.Fatalf("fit: %v", err)
	}

	if len(conn.msgs) != 3 || conn.subjects[0] != "geoportal.map.ws1" {
		t.Fatalf("unexpected publishes %v", conn.subjects)
	}
	var add struct {
		Op      string `json:"op"`
		Feature struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"feature"`
	}
	if err := json.Unmarshal(conn.msgs[0], &add); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if add.Op != "add" || add.Feature.ID != "aoi:a1" {
		t.Errorf("unexpected add message %s", conn.msgs[0])
	}
	if add.Feature.Properties["popup_text"] != "Rectangle 1\nType: rectangle\nArea: 4.00 km²" {
		t.Errorf("unexpected popup text %v", add.Feature.Properties["popup_text"])
	}

	var fit MapMessage
	if err := json.Unmarshal(conn.msgs[2], &fit); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fit.Op != OpFit || fit.Fit == nil || fit.Fit.Bounds.Array() != [4]float64{0, 0, 1, 1} {
		t.Errorf("unexpected fit message %s", conn.msgs[2])
	}
}
