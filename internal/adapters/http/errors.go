package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/drawing"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, invalid_geometry, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// errFromDomain maps core errors onto API errors.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case domain.IsGeometryError(err):
		return newError(c, fiber.StatusUnprocessableEntity, "invalid_geometry", err.Error())
	case errors.Is(err, domain.ErrUnknownCoordinateSystem):
		return newError(c, fiber.StatusBadRequest, "unknown_crs", err.Error())
	case errors.Is(err, domain.ErrWorkspaceNotFound),
		errors.Is(err, domain.ErrAOINotFound),
		errors.Is(err, domain.ErrBoundaryNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, drawing.ErrNotDrawing), errors.Is(err, drawing.ErrStaleGesture):
		return errConflict(c, err.Error())
	}
	LoggerFromCtx(c.UserContext()).Error("request failed", "error", err)
	return errInternal(c, "internal error")
}
