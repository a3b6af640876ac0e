package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/scholarx/scholarx-backend/internal/auth"
	"github.com/scholarx/scholarx-backend/internal/domain"
)

const GoogleIssuer = auth.GoogleIssuer

// CustomClaims are the Google profile claims stored on the request context
type CustomClaims = auth.GoogleClaims

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// SubjectKey is the context key for the Google subject identifier
	SubjectKey contextKey = "subject"
	// ProfileIDKey is the context key for the caller's profile ID
	ProfileIDKey contextKey = "profile_id"
)

// TokenValidator validates a raw token and returns its claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// ProfileProvider resolves the profile owning a Google subject identifier
type ProfileProvider interface {
	GetProfileIDByUID(ctx context.Context, uid string) (int64, error)
}

// AuthMiddleware provides ID token validation middleware
type AuthMiddleware struct {
	validator       TokenValidator
	profileProvider ProfileProvider
}

// NewAuthMiddleware accepts Google ID tokens issued to clientID
func NewAuthMiddleware(clientID string, profileProvider ProfileProvider) (*AuthMiddleware, error) {
	v, err := auth.NewGoogleValidator(clientID)
	if err != nil {
		return nil, err
	}
	return NewAuthMiddlewareWithValidator(v, profileProvider), nil
}

// NewAuthMiddlewareWithValidator creates an AuthMiddleware around an existing validator
func NewAuthMiddlewareWithValidator(v TokenValidator, profileProvider ProfileProvider) *AuthMiddleware {
	return &AuthMiddleware{
		validator:       v,
		profileProvider: profileProvider,
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func withValue(c echo.Context, key contextKey, value interface{}) {
	c.SetRequest(c.Request().WithContext(context.WithValue(c.Request().Context(), key, value)))
}

// Authenticate validates the Google ID token in the Authorization header and
// stores its claims and subject on the request context
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return unauthorizedError(c, "missing authorization header")
			}
			token, ok := bearerToken(header)
			if !ok {
				return unauthorizedError(c, "invalid authorization header format")
			}

			raw, err := m.validator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "invalid token")
			}
			claims, ok := raw.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "invalid claims")
			}

			withValue(c, ClaimsKey, claims)
			withValue(c, SubjectKey, claims.RegisteredClaims.Subject)
			return next(c)
		}
	}
}

// RequireProfile resolves the authenticated subject to its profile ID. It
// must run after Authenticate. A subject without a profile is treated as
// unauthenticated since the client has to complete the auth callback first.
func (m *AuthMiddleware) RequireProfile() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject := GetSubject(c)
			if subject == "" {
				return unauthorizedError(c, "not authenticated")
			}

			profileID, err := m.profileProvider.GetProfileIDByUID(c.Request().Context(), subject)
			switch {
			case errors.Is(err, domain.ErrProfileNotFound):
				return unauthorizedError(c, "no profile registered for this account")
			case err != nil:
				log.Error().Err(err).Str("subject", subject).Msg("Profile lookup failed")
				return internalError(c, "profile lookup failed")
			}

			withValue(c, ProfileIDKey, profileID)
			return next(c)
		}
	}
}

// GetSubject extracts the Google subject identifier from the context
func GetSubject(c echo.Context) string {
	if id, ok := c.Request().Context().Value(SubjectKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetCustomClaims extracts the custom claims from the context
func GetCustomClaims(c echo.Context) *CustomClaims {
	claims := GetClaims(c)
	if claims == nil {
		return nil
	}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		return custom
	}
	return nil
}

// GetProfileID extracts the caller's profile ID from the context
func GetProfileID(c echo.Context) int64 {
	if id, ok := c.Request().Context().Value(ProfileIDKey).(int64); ok {
		return id
	}
	return 0
}
