package server

import (
	"errors"

	"isintu/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Pagination is a parsed limit/offset window.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPageSize = 100

// parsePagination reads ?limit= and ?offset=. Missing, malformed or
// non-positive limits fall back to def; limits are capped at maxPageSize.
func parsePagination(c *fiber.Ctx, def int) Pagination {
	p := Pagination{
		Limit:  c.QueryInt("limit", def),
		Offset: max(c.QueryInt("offset", 0), 0),
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	p.Limit = min(p.Limit, maxPageSize)
	return p
}

// pathID reads the :id route parameter. On a missing or non-positive value
// it answers 400 "Invalid <resource> ID" and reports false; the handler
// then returns nil.
func pathID(c *fiber.Ctx, resource string) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+resource+" ID"))
		return 0, false
	}
	return uint(id), true
}

// respondErr renders err with the status its AppError code maps to.
func respondErr(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// currentUserID returns the id AuthRequired stored in locals.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

func invalidBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

var errMediaUnavailable = errors.New("media storage is not configured")
