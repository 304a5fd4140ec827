package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	natsadapter "github.com/samirrijal/geoportal/internal/adapters/nats"
	"github.com/samirrijal/geoportal/internal/adapters/parser"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/drawing"
	"github.com/samirrijal/geoportal/internal/core/usecases"
)

// inWorkspace runs fn against the workspace named by the :id param. fn
// writes the response on success and returns core errors unwritten.
func inWorkspace(c *fiber.Ctx, deps *Dependencies, fn func(ws *usecases.Workspace) error) error {
	if err := deps.Workspaces.Do(c.Params("id"), fn); err != nil {
		return errFromDomain(c, err)
	}
	return nil
}

// writeResult answers an AOI-creating request: 201 with the AOI, or 422 when
// the shape was rejected and the user may retry.
func writeResult(c *fiber.Ctx, res usecases.Result) error {
	if !res.OK {
		if res.Err != nil {
			LoggerFromCtx(c.UserContext()).Info("area not created", "error", res.Err)
		}
		return newError(c, fiber.StatusUnprocessableEntity, "invalid_geometry", res.Message)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// CreateWorkspaceHandler opens a new workspace.
func CreateWorkspaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := deps.Workspaces.Create()
		c.Location("/v1/workspaces/" + id)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	}
}

// DeleteWorkspaceHandler closes a workspace.
func DeleteWorkspaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Workspaces.Delete(c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetWorkspaceHandler returns the selection summary.
func GetWorkspaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			return c.JSON(ws.Summary())
		})
	}
}

// SelectToolHandler activates a drawing tool. Mode "none" deactivates.
func SelectToolHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Mode string `json:"mode"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		mode, err := drawing.ParseMode(req.Mode)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			if err := ws.SelectTool(mode); err != nil {
				return err
			}
			return c.JSON(ws.Summary())
		})
	}
}

// CancelDrawingHandler abandons the active tool.
func CancelDrawingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			ws.CancelDrawing()
			return c.JSON(ws.Summary())
		})
	}
}

// BeginGestureHandler binds the host's shape identity. Later gestures must
// carry the same shape_id or be rejected with 409.
func BeginGestureHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		ShapeID string `json:"shape_id"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			if _, err := ws.BeginGesture(req.ShapeID); err != nil {
				return err
			}
			return c.JSON(ws.Summary())
		})
	}
}

// GestureProgressHandler updates the drawing preview.
func GestureProgressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var raw drawing.RawShape
		if err := c.BodyParser(&raw); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			if err := ws.GestureProgress(raw); err != nil {
				return err
			}
			return c.SendStatus(fiber.StatusNoContent)
		})
	}
}

// CompleteGestureHandler turns a finished gesture into an AOI.
func CompleteGestureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var raw drawing.RawShape
		if err := c.BodyParser(&raw); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			res, err := ws.CompleteGesture(c.UserContext(), raw)
			if err != nil {
				return err
			}
			return writeResult(c, res)
		})
	}
}

// CoordinatesHandler creates a rectangle AOI from typed-in bounds. Values
// are keyed by the coordinate system's axes: min_lon, max_lat, min_easting
// and so on.
func CoordinatesHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		CRS    string             `json:"crs"`
		Name   string             `json:"name"`
		Values map[string]float64 `json:"values"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		cs, err := deps.Systems.Get(req.CRS)
		if err != nil {
			return errFromDomain(c, err)
		}

		var missing []string
		value := func(key string) float64 {
			v, ok := req.Values[key]
			if !ok {
				missing = append(missing, key)
			}
			return v
		}
		sw := orb.Point{value("min_" + cs.X.Key), value("min_" + cs.Y.Key)}
		ne := orb.Point{value("max_" + cs.X.Key), value("max_" + cs.Y.Key)}
		if len(missing) > 0 {
			return errBadRequest(c, "missing values: "+strings.Join(missing, ", "))
		}

		entry := usecases.CoordinateEntry{CRS: cs.ID, Name: req.Name, SW: sw, NE: ne}
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			res, err := ws.ApplyCoordinates(c.UserContext(), entry)
			if err != nil {
				return err
			}
			return writeResult(c, res)
		})
	}
}

// FilesHandler adds already-parsed file geometry (GeoJSON) as a file AOI.
func FilesHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Filename   string          `json:"filename"`
		CRS        string          `json:"crs"`
		Geometry   json.RawMessage `json:"geometry"`
		UploadedAt *time.Time      `json:"uploaded_at"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Filename == "" || len(req.Geometry) == 0 {
			return errBadRequest(c, "filename and geometry are required")
		}
		shape, err := parser.DecodeGeoJSON(req.Geometry)
		if err != nil {
			return errFromDomain(c, err)
		}
		var uploadedAt time.Time
		if req.UploadedAt != nil {
			uploadedAt = *req.UploadedAt
		}

		g := domain.Geometry{CRS: req.CRS, Shape: shape}
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			res, err := ws.ImportFile(c.UserContext(), req.Filename, g, uploadedAt)
			if err != nil {
				return err
			}
			return writeResult(c, res)
		})
	}
}

// StartImportHandler hands an uploaded file to the import workflow. The
// resulting AOI arrives asynchronously over the map WebSocket.
func StartImportHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		FileRef  string `json:"file_ref"`
		Filename string `json:"filename"`
		CRS      string `json:"crs"`
	}
	return func(c *fiber.Ctx) error {
		if deps.Imports == nil {
			return errUnavailable(c, "file import is not configured")
		}
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.FileRef == "" || req.Filename == "" {
			return errBadRequest(c, "file_ref and filename are required")
		}

		id := c.Params("id")
		if err := deps.Workspaces.Do(id, func(*usecases.Workspace) error { return nil }); err != nil {
			return errFromDomain(c, err)
		}

		runID, err := deps.Imports.StartImport(c.UserContext(), domain.ImportRequest{
			WorkspaceID: id,
			FileRef:     req.FileRef,
			Filename:    req.Filename,
			CRS:         req.CRS,
		})
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("start import failed", "workspace_id", id, "error", err)
			return errInternal(c, "could not start import")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID})
	}
}

// ListAOIsHandler returns the workspace's AOIs in creation order.
func ListAOIsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c, 50, 200)
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			all := ws.AOIs()
			page, pg := paginate(all, offset, limit)
			SetLinkHeaders(c, pg)
			return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
		})
	}
}

// GetAOIHandler returns one AOI.
func GetAOIHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			a, err := ws.AOI(c.Params("aoi"))
			if err != nil {
				return err
			}
			return c.JSON(a)
		})
	}
}

// RemoveAOIHandler deletes one AOI.
func RemoveAOIHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			if err := ws.Remove(c.UserContext(), c.Params("aoi")); err != nil {
				return err
			}
			return c.SendStatus(fiber.StatusNoContent)
		})
	}
}

// ResetHandler removes every AOI.
func ResetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			ws.Reset(c.UserContext())
			return c.SendStatus(fiber.StatusNoContent)
		})
	}
}

type focusResponse struct {
	FocalAOI      string                 `json:"focal_aoi,omitempty"`
	FocalBoundary string                 `json:"focal_boundary,omitempty"`
	Fit           *domain.FitInstruction `json:"fit,omitempty"`
}

func newFocusResponse(ws *usecases.Workspace) focusResponse {
	s := ws.Summary()
	out := focusResponse{FocalAOI: s.FocalAOI, FocalBoundary: s.FocalBoundary}
	if fit, ok := ws.LastFit(); ok {
		out.Fit = &fit
	}
	return out
}

// FocalHandler makes an AOI focal and fits the view; a null id clears.
func FocalHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		AOIID *string `json:"aoi_id"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		id := ""
		if req.AOIID != nil {
			id = *req.AOIID
		}
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			if err := ws.Focus(c.UserContext(), id); err != nil {
				return err
			}
			return c.JSON(newFocusResponse(ws))
		})
	}
}

// BoundariesHandler replaces the rendered boundary overlay. Visible defaults
// to every requested id; an explicit empty list renders nothing.
func BoundariesHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		IDs     []string  `json:"ids"`
		Visible *[]string `json:"visible"`
		Focal   string    `json:"focal"`
	}
	return func(c *fiber.Ctx) error {
		if deps.Boundaries == nil {
			return errUnavailable(c, "boundary catalogue is not configured")
		}
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.IDs) > 500 {
			return errBadRequest(c, "at most 500 boundaries per request")
		}

		bs, err := deps.Boundaries.GetByIDs(c.UserContext(), req.IDs)
		if err != nil {
			return errFromDomain(c, err)
		}
		visible := domain.NewVisibilitySet(req.IDs...)
		if req.Visible != nil {
			visible = domain.NewVisibilitySet(*req.Visible...)
		}

		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			if err := ws.SetBoundaries(bs, visible); err != nil {
				LoggerFromCtx(c.UserContext()).Warn("boundary overlay incomplete", "error", err)
			}
			if err := ws.SetFocalBoundary(req.Focal); err != nil {
				return err
			}
			return c.JSON(newFocusResponse(ws))
		})
	}
}

// PreviewHandler toggles the drawing preview layer.
func PreviewHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Visible bool `json:"visible"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			if err := ws.SetDrawingPreviewVisible(req.Visible); err != nil {
				LoggerFromCtx(c.UserContext()).Warn("preview render failed", "error", err)
			}
			return c.SendStatus(fiber.StatusNoContent)
		})
	}
}

type renderFailure struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

type layersResponse struct {
	Layers   *geojson.FeatureCollection `json:"layers"`
	Fit      *domain.FitInstruction     `json:"fit,omitempty"`
	Failures []renderFailure            `json:"render_failures"`
}

// LayersHandler returns the rendered layer list in draw order, the last
// fit instruction and the features that could not be rendered. Browsers
// use it to resync after a WebSocket reconnect.
func LayersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return inWorkspace(c, deps, func(ws *usecases.Workspace) error {
			fc := geojson.NewFeatureCollection()
			for _, l := range ws.Layers() {
				fc.Append(natsadapter.LayerFeature(l))
			}
			out := layersResponse{Layers: fc, Failures: []renderFailure{}}
			if fit, ok := ws.LastFit(); ok {
				out.Fit = &fit
			}
			for _, f := range ws.RenderFailures() {
				out.Failures = append(out.Failures, renderFailure{Kind: f.Kind, ID: f.ID, Error: f.Err.Error()})
			}
			return c.JSON(out)
		})
	}
}

