package parser

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

const square = `{"type":"Polygon","coordinates":[[[30,-18],[31,-18],[31,-17],[30,-17],[30,-18]]]}`

func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, handler) }()
	t.Cleanup(func() { _ = ln.Close() })

	c := New("http://parser.test/parse", "wgs84", 2*time.Second)
	c.http.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }
	return c
}

func TestClient_Parse(t *testing.T) {
	var got parseRequest
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetContentType("application/geo+json")
		ctx.SetBodyString(square)
	})

	g, err := c.Parse(context.Background(), "uploads/farm.geojson", "farm.geojson")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FileRef != "uploads/farm.geojson" || got.Filename != "farm.geojson" {
		t.Errorf("unexpected request %+v", got)
	}
	if g.CRS != "wgs84" || g.Kind() != domain.KindPolygon {
		t.Errorf("unexpected geometry %s %s", g.CRS, g.Kind())
	}
}

func TestClient_ParseHTTPError(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusUnprocessableEntity)
		ctx.SetBodyString("unsupported archive")
	})
	if _, err := c.Parse(context.Background(), "x", "x.rar"); err == nil {
		t.Error("expected error")
	}
}

func TestDecodeGeoJSON(t *testing.T) {
	fc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":` + square + `},
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}},
		{"type":"Feature","properties":{},"geometry":` + square + `}
	]}`
	g, err := DecodeGeoJSON([]byte(fc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mp, ok := g.(orb.MultiPolygon)
	if !ok || len(mp) != 2 {
		t.Errorf("expected 2-member multipolygon, got %T", g)
	}

	g, err = DecodeGeoJSON([]byte(`{"type":"Feature","properties":{},"geometry":` + square + `}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := g.(orb.Polygon); !ok {
		t.Errorf("expected polygon, got %T", g)
	}

	if _, err := DecodeGeoJSON([]byte(`{"type":"Point","coordinates":[1,2]}`)); !errors.Is(err, domain.ErrEmptyGeometry) {
		t.Errorf("expected ErrEmptyGeometry, got %v", err)
	}
	if _, err := DecodeGeoJSON([]byte(`{`)); !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}
