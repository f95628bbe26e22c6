package server

import (
	"isintu/internal/featureflags"
	"isintu/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/profiles/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.identity.CurrentUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/profiles/me
// @Summary Update the caller's display name
// @Tags profiles
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{full_name=string} true "New name"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Router /profiles/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		FullName string `json:"full_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	profile, err := s.identity.UpdateFullName(c.UserContext(), currentUserID(c), req.FullName)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(profile)
}

// ChangeMyPassword handles PUT /api/profiles/me/password
func (s *Server) ChangeMyPassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	if err := s.identity.ChangePassword(c.UserContext(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// GetAdminProfile handles GET /api/profiles/admin. Clients use it to show
// and follow the account that authors the feed.
func (s *Server) GetAdminProfile(c *fiber.Ctx) error {
	profile, err := s.identity.AdminProfile(c.UserContext())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(profile.Public())
}

// GetProfile handles GET /api/profiles/:id
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, ok := pathID(c, "profile")
	if !ok {
		return nil
	}

	profile, err := s.identity.PublicProfile(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	count, err := s.engagement.FollowerCount(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{
		"profile":        profile,
		"follower_count": count,
	})
}

// FollowProfile handles POST /api/profiles/:id/follow
// @Summary Follow a profile
// @Description Following twice is not an error; the result says already_following
// @Tags profiles
// @Security BearerAuth
// @Produce json
// @Param id path int true "Profile ID"
// @Success 200 {object} object{result=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id}/follow [post]
func (s *Server) FollowProfile(c *fiber.Ctx) error {
	id, ok := pathID(c, "profile")
	if !ok {
		return nil
	}

	result, err := s.engagement.Follow(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	status := fiber.StatusOK
	if result == models.FollowResultFollowed {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"result": result})
}

// UnfollowProfile handles DELETE /api/profiles/:id/follow
func (s *Server) UnfollowProfile(c *fiber.Ctx) error {
	id, ok := pathID(c, "profile")
	if !ok {
		return nil
	}

	removed, err := s.engagement.Unfollow(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// GetFollowers handles GET /api/profiles/:id/followers. Other users' lists
// sit behind the follower_lists flag; owners always see their own.
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, ok := pathID(c, "profile")
	if !ok {
		return nil
	}
	userID := currentUserID(c)
	if id != userID && !s.featureFlags.Enabled(featureflags.FollowerLists, userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Follower lists are private"))
	}

	followers, err := s.engagement.Followers(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(followers)
}

// RemoveFollower handles DELETE /api/followers/:id, where id is the
// follower row pointing at the caller.
func (s *Server) RemoveFollower(c *fiber.Ctx) error {
	rowID, ok := pathID(c, "follower")
	if !ok {
		return nil
	}

	if err := s.engagement.RemoveFollower(c.UserContext(), currentUserID(c), rowID); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
