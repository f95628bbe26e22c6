package server

import (
	"strings"

	"isintu/internal/middleware"
	"isintu/internal/models"

	"github.com/gofiber/fiber/v2"
)

// bearerToken returns the token from "Authorization: Bearer <token>".
func bearerToken(c *fiber.Ctx) string {
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthRequired rejects requests without a valid, unrevoked bearer token and
// stores the caller's id in locals and on the user context.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.identity.ParseToken(c.UserContext(), token)
		if err != nil {
			return respondErr(c, err)
		}
		userID, err := claims.UserID()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token subject"))
		}

		c.Locals("userID", userID)
		c.Locals("token", token)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// AdminRequired answers 403 unless the caller's stored role is admin. The
// role is re-read so a demotion takes effect before the token expires.
// Must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		profile, err := s.profiles.GetByID(c.UserContext(), userID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Unknown user"))
			}
			return respondErr(c, err)
		}
		if !profile.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// optionalUserID returns the caller's id when a valid token is present but
// never rejects the request.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	token := bearerToken(c)
	if token == "" {
		return 0, false
	}
	claims, err := s.identity.ParseToken(c.UserContext(), token)
	if err != nil {
		return 0, false
	}
	userID, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return userID, true
}
