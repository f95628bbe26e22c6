package server

import (
	"isintu/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/posts
// @Summary Published feed
// @Description Published posts newest first with live like and comment counts
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.PostAggregate
// @Router /posts [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	viewerID, _ := s.optionalUserID(c)

	posts, err := s.engagement.Feed(c.UserContext(), viewerID, page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, ok := pathID(c, "post")
	if !ok {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	post, err := s.engagement.Post(c.UserContext(), id, viewerID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(post)
}

// SubmitPost handles POST /api/posts
// @Summary Submit a post
// @Description Admin posts publish immediately and notify every user; others wait for moderation
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.SubmitInput true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) SubmitPost(c *fiber.Ctx) error {
	var req service.SubmitInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	req.UserID = currentUserID(c)

	post, err := s.moderation.Submit(c.UserContext(), req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// DeletePost handles DELETE /api/posts/:id (admin only).
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, ok := pathID(c, "post")
	if !ok {
		return nil
	}

	if err := s.moderation.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.LikeToggle
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, ok := pathID(c, "post")
	if !ok {
		return nil
	}

	result, err := s.engagement.ToggleLike(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(result)
}

// GetPostLikers handles GET /api/posts/:id/likes
func (s *Server) GetPostLikers(c *fiber.Ctx) error {
	id, ok := pathID(c, "post")
	if !ok {
		return nil
	}

	likers, err := s.engagement.PostLikers(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(likers)
}
