package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/geoportal/internal/core/aoi"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/usecases"
)

// workspaceSnapshot is a workspace read under its lock so resolvers never
// touch live state.
type workspaceSnapshot struct {
	summary usecases.Summary
	layers  []domain.Layer
	fit     *domain.FitInstruction
}

func geoJSONString(s domain.Geometry) (string, error) {
	if s.Shape == nil {
		return "", nil
	}
	data, err := json.Marshal(geojson.NewGeometry(s.Shape))
	return string(data), err
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	axisType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Axis",
		Fields: graphql.Fields{
			"key":   &graphql.Field{Type: graphql.String},
			"label": &graphql.Field{Type: graphql.String},
			"unit":  &graphql.Field{Type: graphql.String},
			"min":   &graphql.Field{Type: graphql.Float},
			"max":   &graphql.Field{Type: graphql.Float},
		},
	})

	crsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CoordinateSystem",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"authority":   &graphql.Field{Type: graphql.String},
			"kind":        &graphql.Field{Type: graphql.String},
			"zone":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"x":           &graphql.Field{Type: axisType},
			"y":           &graphql.Field{Type: axisType},
		},
	})

	aoiField := func(t graphql.Output, fn func(a aoi.AOI) interface{}) *graphql.Field {
		return &graphql.Field{
			Type: t,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return fn(p.Source.(aoi.AOI)), nil
			},
		}
	}
	aoiType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AreaOfInterest",
		Fields: graphql.Fields{
			"id":               aoiField(graphql.String, func(a aoi.AOI) interface{} { return a.ID() }),
			"name":             aoiField(graphql.String, func(a aoi.AOI) interface{} { return a.Name() }),
			"type":             aoiField(graphql.String, func(a aoi.AOI) interface{} { return string(a.Type()) }),
			"coordinateSystem": aoiField(graphql.String, func(a aoi.AOI) interface{} { return a.CoordinateSystem() }),
			"areaKm2":          aoiField(graphql.Float, func(a aoi.AOI) interface{} { return a.Area() }),
			"bounds": aoiField(graphql.NewList(graphql.Float), func(a aoi.AOI) interface{} {
				b := a.Bounds().Array()
				return b[:]
			}),
			"filename": aoiField(graphql.String, func(a aoi.AOI) interface{} { return a.Filename() }),
			"geometry": &graphql.Field{
				Type:        graphql.String,
				Description: "GeoJSON geometry in the AOI's own coordinate system",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geoJSONString(p.Source.(aoi.AOI).Geometry())
				},
			},
		},
	})

	layerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Layer",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"group":     &graphql.Field{Type: graphql.String},
			"source_id": &graphql.Field{Type: graphql.String},
			"popupText": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.Layer).Popup.Text(), nil
				},
			},
			"geometry": &graphql.Field{
				Type:        graphql.String,
				Description: "GeoJSON geometry in WGS84",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geoJSONString(p.Source.(domain.Layer).Geometry)
				},
			},
		},
	})

	fitType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FitInstruction",
		Fields: graphql.Fields{
			"target": &graphql.Field{Type: graphql.String},
			"bounds": &graphql.Field{
				Type: graphql.NewList(graphql.Float),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					b := p.Source.(*domain.FitInstruction).Bounds.Array()
					return b[:], nil
				},
			},
			"maxZoom": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.FitInstruction).MaxZoom, nil
				},
			},
		},
	})

	snap := func(p graphql.ResolveParams) workspaceSnapshot { return p.Source.(workspaceSnapshot) }
	workspaceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Workspace",
		Fields: graphql.Fields{
			"id": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return snap(p).summary.ID, nil
			}},
			"count": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return snap(p).summary.Count, nil
			}},
			"totalArea": &graphql.Field{
				Type:        graphql.Float,
				Description: "Sum of AOI areas in km²",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return snap(p).summary.TotalArea, nil
				},
			},
			"state": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return string(snap(p).summary.State), nil
			}},
			"mode": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return string(snap(p).summary.Mode), nil
			}},
			"focalAoi": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return snap(p).summary.FocalAOI, nil
			}},
			"aois": &graphql.Field{Type: graphql.NewList(aoiType), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return snap(p).summary.AOIs, nil
			}},
			"layers": &graphql.Field{Type: graphql.NewList(layerType), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return snap(p).layers, nil
			}},
			"lastFit": &graphql.Field{Type: fitType, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if f := snap(p).fit; f != nil {
					return f, nil
				}
				return nil, nil
			}},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"coordinateSystems": &graphql.Field{
				Type:        graphql.NewList(crsType),
				Description: "List the registered coordinate systems",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Systems.List(), nil
				},
			},
			"coordinateSystem": &graphql.Field{
				Type:        crsType,
				Description: "Get a coordinate system by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Systems.Get(p.Args["id"].(string))
				},
			},
			"workspace": &graphql.Field{
				Type:        workspaceType,
				Description: "Get a workspace's AOIs, layers and total area",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var out workspaceSnapshot
					err := deps.Workspaces.Do(p.Args["id"].(string), func(ws *usecases.Workspace) error {
						out.summary = ws.Summary()
						out.layers = ws.Layers()
						if fit, ok := ws.LastFit(); ok {
							out.fit = &fit
						}
						return nil
					})
					if err != nil {
						return nil, err
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
