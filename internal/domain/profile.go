package domain

import (
	"context"
	"strings"
	"time"
)

// ProfileType classifies a profile
type ProfileType string

const (
	ProfileTypeDefault ProfileType = "DEFAULT"
)

// Profile represents the local account record of an authenticated identity
type Profile struct {
	ID                      int64       `json:"id"`
	UID                     *string     `json:"uid"`
	Email                   string      `json:"email"`
	FirstName               string      `json:"firstName"`
	LastName                string      `json:"lastName"`
	ImageURL                *string     `json:"imageUrl"`
	Type                    ProfileType `json:"type"`
	HasConfirmedUserDetails bool        `json:"hasConfirmedUserDetails"`
	CreatedAt               time.Time   `json:"createdAt"`
	LastUpdatedAt           time.Time   `json:"lastUpdatedAt"`
}

// ProfileDetails is the set of fields a user may confirm after registration.
// Only Email is applied.
type ProfileDetails struct {
	Email string `json:"email"`
}

// SetName splits a display name on the first space. A single word becomes the
// first name and leaves the last name empty.
func (p *Profile) SetName(displayName string) {
	p.FirstName, p.LastName = SplitName(displayName)
}

// SplitName splits a display name into at most two parts on the first space
func SplitName(displayName string) (first, last string) {
	first, last, _ = strings.Cut(displayName, " ")
	return first, last
}

// ProfileRepository defines the interface for profile persistence operations
type ProfileRepository interface {
	FindByID(ctx context.Context, id int64) (*Profile, error)
	FindByUID(ctx context.Context, uid string) (*Profile, error)
	ExistsByUID(ctx context.Context, uid string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Save inserts the profile when ID is zero and updates it otherwise.
	// Unique key collisions are reported as ErrDuplicateUser.
	Save(ctx context.Context, profile *Profile) (*Profile, error)
}
