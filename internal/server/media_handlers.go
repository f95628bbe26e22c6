package server

import (
	"io"

	"isintu/internal/featureflags"
	"isintu/internal/models"
	"isintu/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/media (multipart field "file"). Images are
// re-encoded to WebP; videos are stored as uploaded. The returned path goes
// into a post's image or video list.
// @Summary Upload an image or video
// @Tags media
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image or video"
// @Success 201 {object} service.MediaObject
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /media [post]
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if !s.featureFlags.Enabled(featureflags.MediaUploads, userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Media uploads are disabled"))
	}
	if s.media == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(errMediaUnavailable))
	}

	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	obj, err := s.media.Upload(c.UserContext(), service.UploadMediaInput{
		UserID:      userID,
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Content:     content,
		RejectVideo: !s.featureFlags.Enabled(featureflags.VideoUploads, userID),
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// GetMediaURL handles GET /api/media/url?path=...
func (s *Server) GetMediaURL(c *fiber.Ctx) error {
	if s.media == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(errMediaUnavailable))
	}

	signed, err := s.media.SignedURL(c.UserContext(), c.Query("path"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(signed)
}
