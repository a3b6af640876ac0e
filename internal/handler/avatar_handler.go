package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/scholarx/scholarx-backend/internal/domain"
	"github.com/scholarx/scholarx-backend/internal/middleware"
	"github.com/scholarx/scholarx-backend/internal/service"
)

// AvatarHandler handles profile picture uploads
type AvatarHandler struct {
	avatarService *service.AvatarService
}

// NewAvatarHandler creates a new AvatarHandler
func NewAvatarHandler(avatarService *service.AvatarService) *AvatarHandler {
	return &AvatarHandler{avatarService: avatarService}
}

// UploadAvatar godoc
// @Summary Upload a profile picture
// @Description Replaces the caller's profile picture. The image is resized to at most 400px wide and stored as JPEG.
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file (JPEG, PNG or WebP, max 5MB)"
// @Success 200 {object} domain.Profile
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /profile/avatar [post]
func (h *AvatarHandler) UploadAvatar(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == 0 {
		return NewUnauthorizedError(c, "Profile required")
	}

	if h.avatarService == nil || !h.avatarService.IsEnabled() {
		return NewServiceUnavailableError(c, "Avatar uploads are disabled (storage not configured)")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	// One byte past the limit is enough for the service to reject it
	data, err := io.ReadAll(io.LimitReader(src, service.MaxImageSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	profile, err := h.avatarService.UploadAvatar(c.Request().Context(), profileID, data, file.Filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageTooLarge),
			errors.Is(err, service.ErrInvalidFormat),
			errors.Is(err, service.ErrImageTooSmall),
			errors.Is(err, service.ErrInvalidImageData):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: err.Error()},
			})
		case errors.Is(err, domain.ErrProfileNotFound):
			return NewNotFoundError(c, "Profile not found")
		default:
			log.Error().Err(err).Int64("profile_id", profileID).Msg("Failed to upload avatar")
			return NewInternalError(c, "Failed to upload avatar")
		}
	}

	log.Info().Int64("profile_id", profileID).Msg("Avatar uploaded successfully")

	return c.JSON(http.StatusOK, profile)
}
