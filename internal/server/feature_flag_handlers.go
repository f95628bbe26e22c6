package server

import (
	"isintu/internal/models"

	"github.com/gofiber/fiber/v2"
)

type featureFlagsResponse struct {
	ProfileID uint              `json:"profile_id"`
	Raw       map[string]string `json:"raw"`
	Evaluated map[string]bool   `json:"evaluated"`
}

// GetFeatureFlags godoc
// @Summary Feature flag state
// @Description Configured flag values and their evaluation for the caller, or for ?profile_id=
// @Tags admin
// @Produce json
// @Param profile_id query int false "Evaluate for this profile"
// @Success 200 {object} featureFlagsResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/feature-flags [get]
// @Security BearerAuth
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	profileID := currentUserID(c)
	if c.Query("profile_id") != "" {
		id := c.QueryInt("profile_id", 0)
		if id <= 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid profile_id"))
		}
		target, err := s.profiles.GetByID(c.UserContext(), uint(id))
		if err != nil {
			return respondErr(c, err)
		}
		profileID = target.ID
	}

	resp := featureFlagsResponse{
		ProfileID: profileID,
		Raw:       map[string]string{},
		Evaluated: map[string]bool{},
	}
	if s.featureFlags != nil {
		resp.Raw = s.featureFlags.Raw()
		resp.Evaluated = s.featureFlags.Snapshot(profileID)
	}
	return c.JSON(resp)
}
