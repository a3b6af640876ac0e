package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/scholarx/scholarx-backend/internal/domain"
	"github.com/scholarx/scholarx-backend/internal/websocket"
)

// ProfileService handles registration and maintenance of profiles
type ProfileService struct {
	profileRepo domain.ProfileRepository
	publisher   websocket.EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProfileService creates a new ProfileService
func NewProfileService(profileRepo domain.ProfileRepository, publisher websocket.EventPublisher, logger zerolog.Logger) *ProfileService {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &ProfileService{
		profileRepo: profileRepo,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// LoginResult contains the outcome of an identity provider login
type LoginResult struct {
	Profile      *domain.Profile
	IsNewProfile bool
}

// RegisterOrRefresh handles a successful identity provider login. An existing
// profile gets its name and picture refreshed; otherwise a new profile is created.
func (s *ProfileService) RegisterOrRefresh(ctx context.Context, attributes domain.IdentityAttributes) (*domain.Profile, error) {
	result, err := s.Login(ctx, attributes)
	if err != nil {
		return nil, err
	}
	return result.Profile, nil
}

// Login behaves like RegisterOrRefresh and also reports whether the profile was created
func (s *ProfileService) Login(ctx context.Context, attributes domain.IdentityAttributes) (*LoginResult, error) {
	info := domain.NewGoogleUserInfo(attributes)
	if strings.TrimSpace(info.Name()) == "" {
		return nil, fmt.Errorf("%w: name not found from OAuth2 provider", domain.ErrIdentityValidation)
	}
	if strings.TrimSpace(info.Email()) == "" {
		return nil, fmt.Errorf("%w: email not found from OAuth2 provider", domain.ErrIdentityValidation)
	}

	profile, err := s.profileRepo.FindByUID(ctx, info.ID())
	if errors.Is(err, domain.ErrProfileNotFound) {
		created, err := s.Create(ctx, info)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Profile: created, IsNewProfile: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by uid: %w", err)
	}

	profile.SetName(info.Name())
	profile.ImageURL = optionalString(info.ImageURL())

	saved, err := s.profileRepo.Save(ctx, profile)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Int64("profile_id", saved.ID).Msg("Profile refreshed from identity provider")
	s.publisher.Publish(saved.ID, websocket.ProfileUpdated(saved))
	return &LoginResult{Profile: saved}, nil
}

// Create persists a new profile built from the identity attributes. It fails
// with ErrDuplicateUser when the uid or the email is already registered.
func (s *ProfileService) Create(ctx context.Context, info domain.GoogleUserInfo) (*domain.Profile, error) {
	if uid := info.ID(); uid != "" {
		exists, err := s.profileRepo.ExistsByUID(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("check uid: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("%w: profile with uid %s already exists", domain.ErrDuplicateUser, uid)
		}
	}

	exists, err := s.profileRepo.ExistsByEmail(ctx, info.Email())
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: profile with email %s already exists", domain.ErrDuplicateUser, info.Email())
	}

	// The store's unique keys still reject a concurrent insert of the same identity.
	saved, err := s.profileRepo.Save(ctx, s.buildProfile(info))
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("profile_id", saved.ID).Msg("Created new profile")
	s.publisher.Publish(saved.ID, websocket.ProfileCreated(saved))
	return saved, nil
}

func (s *ProfileService) buildProfile(info domain.GoogleUserInfo) *domain.Profile {
	now := s.now()
	profile := &domain.Profile{
		Email:                   info.Email(),
		UID:                     optionalString(info.ID()),
		Type:                    domain.ProfileTypeDefault,
		ImageURL:                optionalString(info.ImageURL()),
		HasConfirmedUserDetails: false,
		CreatedAt:               now,
		LastUpdatedAt:           now,
	}
	profile.SetName(info.Name())
	return profile
}

// GetByID retrieves a profile by its ID
func (s *ProfileService) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrProfileNotFound) {
		err = fmt.Errorf("%w: profile with id %d doesn't exist", domain.ErrProfileNotFound, id)
		s.logger.Error().Err(err).Int64("profile_id", id).Msg("Profile lookup failed")
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return profile, nil
}

// GetByUID retrieves the profile linked to a provider subject identifier
func (s *ProfileService) GetByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	return s.profileRepo.FindByUID(ctx, uid)
}

// UpdateDetails applies the confirmed email and marks the profile details as
// confirmed. Fields of the patch other than Email are ignored.
func (s *ProfileService) UpdateDetails(ctx context.Context, id int64, details domain.ProfileDetails) (*domain.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrProfileNotFound) {
		err = fmt.Errorf("%w: unable to update details, profile with id %d doesn't exist", domain.ErrProfileNotFound, id)
		s.logger.Error().Err(err).Int64("profile_id", id).Msg("Profile update failed")
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}

	profile.Email = details.Email
	profile.HasConfirmedUserDetails = true

	saved, err := s.profileRepo.Save(ctx, profile)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(saved.ID, websocket.ProfileUpdated(saved))
	return saved, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
