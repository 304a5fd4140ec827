// Package parser calls the remote file-geometry parsing service.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/valyala/fasthttp"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

type parseRequest struct {
	FileRef  string `json:"file_ref"`
	Filename string `json:"filename"`
}

// Client implements ports.GeometryParser over HTTP.
type Client struct {
	url     string
	crs     string
	timeout time.Duration
	http    *fasthttp.Client
}

// New creates a client posting to url. Parsed geometry is tagged with crsID.
func New(url, crsID string, timeout time.Duration) *Client {
	return &Client{
		url:     url,
		crs:     crsID,
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "geoportal-importer",
			MaxIdleConnDuration: 30 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
	}
}

// Parse asks the service to parse an uploaded file. The response may be a
// GeoJSON geometry, feature or feature collection; polygonal members are
// merged into one Polygon or MultiPolygon.
func (c *Client) Parse(ctx context.Context, fileRef, filename string) (domain.Geometry, error) {
	body, err := json.Marshal(parseRequest{FileRef: fileRef, Filename: filename})
	if err != nil {
		return domain.Geometry{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return domain.Geometry{}, fmt.Errorf("parse %s: %w", filename, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return domain.Geometry{}, fmt.Errorf("parse %s: HTTP %d: %s", filename, code, resp.Body())
	}

	shape, err := DecodeGeoJSON(resp.Body())
	if err != nil {
		return domain.Geometry{}, fmt.Errorf("parse %s: %w", filename, err)
	}
	return domain.Geometry{CRS: c.crs, Shape: shape}, nil
}

// DecodeGeoJSON reads a geometry, feature or feature collection and returns
// its polygonal content.
func DecodeGeoJSON(data []byte) (orb.Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
	}

	var shapes []orb.Geometry
	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
		}
		for _, f := range fc.Features {
			shapes = append(shapes, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
		}
		shapes = append(shapes, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
		}
		shapes = append(shapes, g.Geometry())
	}
	return mergePolygons(shapes)
}

func mergePolygons(shapes []orb.Geometry) (orb.Geometry, error) {
	mp := collectPolygons(nil, shapes)
	switch len(mp) {
	case 0:
		return nil, fmt.Errorf("%w: file contains no polygons", domain.ErrEmptyGeometry)
	case 1:
		return mp[0], nil
	}
	return mp, nil
}

func collectPolygons(mp orb.MultiPolygon, shapes []orb.Geometry) orb.MultiPolygon {
	for _, s := range shapes {
		switch g := s.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		case orb.Collection:
			mp = collectPolygons(mp, g)
		}
	}
	return mp
}
