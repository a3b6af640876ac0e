package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/scholarx/scholarx-backend/internal/domain"
	"github.com/scholarx/scholarx-backend/internal/middleware"
	"github.com/scholarx/scholarx-backend/internal/service"
)

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpdateProfileRequest represents the update profile request
type UpdateProfileRequest struct {
	Email string `json:"email"`
}

// GetProfile godoc
// @Summary Get the caller's profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Profile
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == 0 {
		return NewUnauthorizedError(c, "Profile required")
	}

	profile, err := h.profileService.GetByID(c.Request().Context(), profileID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return NewNotFoundError(c, "Profile not found")
		}
		log.Error().Err(err).Int64("profile_id", profileID).Msg("Failed to get profile")
		return NewInternalError(c, "Failed to get profile")
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Confirm the caller's profile details
// @Description Sets the email and marks the profile details as confirmed
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile details"
// @Success 200 {object} domain.Profile
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == 0 {
		return NewUnauthorizedError(c, "Profile required")
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	email := strings.TrimSpace(req.Email)
	if msg := checkEmail(email); msg != "" {
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: "email", Message: msg}})
	}

	profile, err := h.profileService.UpdateDetails(c.Request().Context(), profileID, domain.ProfileDetails{Email: email})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProfileNotFound):
			return NewNotFoundError(c, "Profile not found")
		case errors.Is(err, domain.ErrDuplicateUser):
			return NewConflictError(c, "Email is already registered to another profile")
		default:
			log.Error().Err(err).Int64("profile_id", profileID).Msg("Failed to update profile")
			return NewInternalError(c, "Failed to update profile")
		}
	}

	log.Info().Int64("profile_id", profileID).Msg("Profile details confirmed")

	return c.JSON(http.StatusOK, profile)
}

// checkEmail returns a message describing why email is unusable, or "" when
// it is a bare address
func checkEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	if len(email) > domain.MaxEmailLength {
		return fmt.Sprintf("Email must be %d characters or less", domain.MaxEmailLength)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "Email must be a valid address"
	}
	return ""
}
