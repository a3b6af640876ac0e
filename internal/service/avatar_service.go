package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scholarx/scholarx-backend/internal/domain"
	"github.com/scholarx/scholarx-backend/internal/repository/storage"
	"github.com/scholarx/scholarx-backend/internal/websocket"
	_ "golang.org/x/image/webp"
)

const (
	MaxImageSize   = 5 * 1024 * 1024
	MaxImagePixels = 40_000_000
	MinImageWidth  = 50
	MinImageHeight = 50
	AvatarWidth    = 400
	JPEGQuality    = 85
)

var (
	ErrImageTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrInvalidFormat             = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrImageTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrInvalidImageData          = errors.New("invalid image data")
	ErrImageStorageNotConfigured = errors.New("image storage not configured")
)

var (
	uploadExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	decodedFormats   = map[string]bool{"jpeg": true, "png": true, "webp": true}
)

// AvatarService validates, resizes and stores profile pictures
type AvatarService struct {
	storage     storage.ImageRepository
	profileRepo domain.ProfileRepository
	publisher   websocket.EventPublisher
}

// NewAvatarService creates a new AvatarService. A nil storage disables uploads.
func NewAvatarService(storage storage.ImageRepository, profileRepo domain.ProfileRepository, publisher websocket.EventPublisher) *AvatarService {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &AvatarService{
		storage:     storage,
		profileRepo: profileRepo,
		publisher:   publisher,
	}
}

// IsEnabled indicates whether uploads are supported (storage configured).
func (s *AvatarService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// ValidateImage checks an upload without keeping the decoded image
func (s *AvatarService) ValidateImage(data []byte, filename string) error {
	_, err := s.validateAndDecode(data, filename)
	return err
}

// validateAndDecode reads only the image header to check format and
// dimensions before paying for a full decode
func (s *AvatarService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	switch {
	case len(data) > MaxImageSize:
		return nil, ErrImageTooLarge
	case !uploadExtensions[strings.ToLower(filepath.Ext(filename))]:
		return nil, ErrInvalidFormat
	}

	header, format, err := image.DecodeConfig(bytes.NewReader(data))
	switch {
	case err != nil:
		return nil, ErrInvalidImageData
	case !decodedFormats[format]:
		return nil, ErrInvalidFormat
	case header.Width < MinImageWidth || header.Height < MinImageHeight:
		return nil, ErrImageTooSmall
	case header.Width*header.Height > MaxImagePixels:
		return nil, ErrImageTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidImageData
	}
	return img, nil
}

// UploadAvatar replaces the profile picture with the uploaded image
func (s *AvatarService) UploadAvatar(ctx context.Context, profileID int64, data []byte, filename string) (*domain.Profile, error) {
	if !s.IsEnabled() {
		return nil, ErrImageStorageNotConfigured
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.FindByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if img.Bounds().Dx() > AvatarWidth {
		img = imaging.Resize(img, AvatarWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	objectPath := fmt.Sprintf("profiles/%d/%s.jpg", profileID, uuid.New().String())
	objectPath, err = s.storage.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len()))
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	var previous string
	if profile.ImageURL != nil {
		previous = *profile.ImageURL
	}
	url := s.storage.URL(objectPath)
	profile.ImageURL = &url

	saved, err := s.profileRepo.Save(ctx, profile)
	if err != nil {
		_ = s.storage.Delete(ctx, objectPath)
		return nil, err
	}

	s.deletePrevious(ctx, previous)
	s.publisher.Publish(saved.ID, websocket.ProfileUpdated(saved))
	return saved, nil
}

// deletePrevious removes a replaced avatar if it lives in our storage.
// Provider-hosted pictures are left alone.
func (s *AvatarService) deletePrevious(ctx context.Context, imageURL string) {
	objectPath, ok := s.storage.ObjectPath(imageURL)
	if !ok {
		return
	}
	if err := s.storage.Delete(ctx, objectPath); err != nil {
		log.Warn().Err(err).Str("object", objectPath).Msg("Failed to delete previous avatar")
	}
}
