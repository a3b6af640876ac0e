package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/scholarx/scholarx-backend/internal/domain"
	"github.com/scholarx/scholarx-backend/internal/middleware"
	"github.com/scholarx/scholarx-backend/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	profileService *service.ProfileService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(profileService *service.ProfileService) *AuthHandler {
	return &AuthHandler{
		profileService: profileService,
	}
}

// AuthCallbackResponse represents the response from the auth callback
type AuthCallbackResponse struct {
	Profile      *domain.Profile `json:"profile"`
	IsNewProfile bool            `json:"isNewProfile"`
}

// Callback godoc
// @Summary Register or refresh the caller's profile
// @Description Called by the frontend after Google sign-in. Creates a profile on first login and refreshes name and picture afterwards.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AuthCallbackResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 500 {object} ProblemDetails
// @Router /auth/callback [post]
func (h *AuthHandler) Callback(c echo.Context) error {
	subject := middleware.GetSubject(c)
	if subject == "" {
		log.Error().Msg("No subject in context - middleware may not be configured")
		return NewUnauthorizedError(c, "Authentication required")
	}

	attributes := domain.IdentityAttributes{"sub": subject}
	if claims := middleware.GetCustomClaims(c); claims != nil {
		attributes["name"] = claims.Name
		attributes["email"] = claims.Email
		attributes["picture"] = claims.Picture
	}

	result, err := h.profileService.Login(c.Request().Context(), attributes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIdentityValidation):
			return NewValidationError(c, err.Error(), nil)
		case errors.Is(err, domain.ErrDuplicateUser):
			return NewConflictError(c, err.Error())
		default:
			log.Error().Err(err).Str("subject", subject).Msg("Failed to register profile")
			return NewInternalError(c, "Failed to register profile")
		}
	}

	return c.JSON(http.StatusOK, AuthCallbackResponse{
		Profile:      result.Profile,
		IsNewProfile: result.IsNewProfile,
	})
}
