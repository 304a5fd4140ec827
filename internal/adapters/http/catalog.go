package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geoportal/internal/core/domain"
)

// ListCRSHandler returns the registered coordinate systems in display order.
func ListCRSHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": deps.Systems.List()})
	}
}

// GetCRSHandler returns one coordinate system with its axis definitions.
func GetCRSHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cs, err := deps.Systems.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, err.Error())
		}
		return c.JSON(cs)
	}
}

func parseLevel(s string) (domain.BoundaryLevel, bool) {
	switch l := domain.BoundaryLevel(s); l {
	case "", domain.LevelCountry, domain.LevelProvince, domain.LevelDistrict, domain.LevelWard:
		return l, true
	}
	return "", false
}

// ListBoundariesHandler lists catalogue boundaries by level or searches them
// by name. At least one of level and q is required.
func ListBoundariesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Boundaries == nil {
			return errUnavailable(c, "boundary catalogue is not configured")
		}
		level, ok := parseLevel(c.Query("level"))
		if !ok {
			return errBadRequest(c, "level must be one of country, province, district, ward")
		}
		q := c.Query("q")
		limit := c.QueryInt("limit", 0)

		var (
			bs  []domain.AdministrativeBoundary
			err error
		)
		switch {
		case q != "":
			bs, err = deps.Boundaries.Search(c.UserContext(), q, level, limit)
		case level != "":
			bs, err = deps.Boundaries.ListByLevel(c.UserContext(), level, c.Query("parent"), limit)
		default:
			return errBadRequest(c, "level or q is required")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		if bs == nil {
			bs = []domain.AdministrativeBoundary{}
		}
		return c.JSON(fiber.Map{"data": bs})
	}
}

// GetBoundaryHandler returns one boundary.
func GetBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Boundaries == nil {
			return errUnavailable(c, "boundary catalogue is not configured")
		}
		b, err := deps.Boundaries.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(b)
	}
}
