package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/scholarx/scholarx-backend/internal/auth"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrProfileNotFound = errors.New("profile not found")
)

// ProfileLookup resolves the profile owning a Google subject identifier
type ProfileLookup interface {
	GetProfileIDByUID(ctx context.Context, uid string) (int64, error)
}

type tokenVerifier interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// GoogleTokenValidator authenticates the ?token= parameter of an upgrade
// request and resolves it to the caller's profile
type GoogleTokenValidator struct {
	verifier tokenVerifier
	profiles ProfileLookup
}

func NewGoogleTokenValidator(clientID string, profiles ProfileLookup) (*GoogleTokenValidator, error) {
	v, err := auth.NewGoogleValidator(clientID)
	if err != nil {
		return nil, err
	}
	return &GoogleTokenValidator{verifier: v, profiles: profiles}, nil
}

// ValidateToken returns the profile ID behind an ID token. Verification
// failures wrap ErrInvalidToken; a subject without a profile, or a failed
// lookup, wraps ErrProfileNotFound.
func (v *GoogleTokenValidator) ValidateToken(ctx context.Context, token string) (int64, error) {
	claims, err := v.verifier.ValidateToken(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	subject, ok := auth.Subject(claims)
	if !ok {
		return 0, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	profileID, err := v.profiles.GetProfileIDByUID(ctx, subject)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProfileNotFound, err)
	}
	return profileID, nil
}
