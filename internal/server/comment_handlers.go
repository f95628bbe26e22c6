package server

import (
	"github.com/gofiber/fiber/v2"
)

type textRequest struct {
	Text string `json:"text"`
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	id, ok := pathID(c, "post")
	if !ok {
		return nil
	}

	threads, err := s.engagement.CommentThread(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(threads)
}

// CreateComment handles POST /api/posts/:id/comments and answers with the
// post's refreshed feed row.
// @Summary Comment on a post
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{text=string} true "Comment"
// @Success 201 {object} models.PostAggregate
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, ok := pathID(c, "post")
	if !ok {
		return nil
	}
	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	post, err := s.engagement.AddComment(c.UserContext(), id, currentUserID(c), req.Text)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// CreateReply handles POST /api/comments/:id/replies and answers with the
// whole comment thread of the post.
func (s *Server) CreateReply(c *fiber.Ctx) error {
	id, ok := pathID(c, "comment")
	if !ok {
		return nil
	}
	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	threads, err := s.engagement.AddReply(c.UserContext(), id, currentUserID(c), req.Text)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(threads)
}

// LikeComment handles POST /api/comments/:id/like. Comment likes are a plain
// counter, so repeated calls keep incrementing.
func (s *Server) LikeComment(c *fiber.Ctx) error {
	id, ok := pathID(c, "comment")
	if !ok {
		return nil
	}

	likes, err := s.engagement.LikeComment(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "likes": likes})
}

// LikeReply handles POST /api/replies/:id/like
func (s *Server) LikeReply(c *fiber.Ctx) error {
	id, ok := pathID(c, "reply")
	if !ok {
		return nil
	}

	likes, err := s.engagement.LikeReply(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "likes": likes})
}
