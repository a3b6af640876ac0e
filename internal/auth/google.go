// Package auth verifies Google ID tokens.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

const GoogleIssuer = "https://accounts.google.com"

const (
	jwksCacheTTL = 5 * time.Minute
	clockSkew    = time.Minute
)

// GoogleClaims are the profile claims carried by a Google ID token
type GoogleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Validate accepts every token; presence of name and email is checked at login
func (GoogleClaims) Validate(context.Context) error {
	return nil
}

// NewGoogleValidator verifies RS256 ID tokens that Google issued for
// clientID. Signing keys come from Google's JWKS and are cached.
func NewGoogleValidator(clientID string) (*validator.Validator, error) {
	issuer, err := url.Parse(GoogleIssuer)
	if err != nil {
		return nil, err
	}
	keys := jwks.NewCachingProvider(issuer, jwksCacheTTL)

	v, err := validator.New(
		keys.KeyFunc,
		validator.RS256,
		GoogleIssuer,
		[]string{clientID},
		validator.WithCustomClaims(func() validator.CustomClaims { return &GoogleClaims{} }),
		validator.WithAllowedClockSkew(clockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("google id token validator: %w", err)
	}
	return v, nil
}

// Subject returns the sub claim of validated claims
func Subject(claims interface{}) (string, bool) {
	vc, ok := claims.(*validator.ValidatedClaims)
	if !ok || vc.RegisteredClaims.Subject == "" {
		return "", false
	}
	return vc.RegisteredClaims.Subject, true
}
