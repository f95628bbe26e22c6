package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetModerationQueue handles GET /api/admin/moderation/queue
// @Summary Pending posts
// @Description Oldest first, joined with the submitter's name and email
// @Tags moderation
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.PendingPost
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/moderation/queue [get]
func (s *Server) GetModerationQueue(c *fiber.Ctx) error {
	queue, err := s.moderation.Queue(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(queue)
}

// ApprovePost handles POST /api/admin/moderation/posts/:id/approve.
// Approving an already published post is a no-op reported in the body.
func (s *Server) ApprovePost(c *fiber.Ctx) error {
	id, ok := pathID(c, "post")
	if !ok {
		return nil
	}

	result, err := s.moderation.Approve(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(result)
}

// RejectPost handles POST /api/admin/moderation/posts/:id/reject
func (s *Server) RejectPost(c *fiber.Ctx) error {
	id, ok := pathID(c, "post")
	if !ok {
		return nil
	}

	if err := s.moderation.Reject(c.UserContext(), currentUserID(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
