package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/scholarx/scholarx-backend/internal/domain"
	"github.com/scholarx/scholarx-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestImage creates a test image of the specified size and format
func createTestImage(width, height int, format string) ([]byte, string) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	var buf bytes.Buffer
	var filename string

	switch format {
	case "png":
		png.Encode(&buf, img)
		filename = "test.png"
	default:
		jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
		filename = "test.jpg"
	}

	return buf.Bytes(), filename
}

func newTestAvatarService() (*AvatarService, *testutil.MockImageRepository, *testutil.MockProfileRepository, *testutil.MockPublisher) {
	images := testutil.NewMockImageRepository()
	repo := testutil.NewMockProfileRepository()
	publisher := testutil.NewMockPublisher()
	return NewAvatarService(images, repo, publisher), images, repo, publisher
}

func TestValidateImage_ValidJPEG(t *testing.T) {
	svc := NewAvatarService(nil, nil, nil)
	data, filename := createTestImage(100, 100, "jpeg")

	assert.NoError(t, svc.ValidateImage(data, filename))
}

func TestValidateImage_ValidPNG(t *testing.T) {
	svc := NewAvatarService(nil, nil, nil)
	data, filename := createTestImage(100, 100, "png")

	assert.NoError(t, svc.ValidateImage(data, filename))
}

func TestValidateImage_TooLarge(t *testing.T) {
	svc := NewAvatarService(nil, nil, nil)
	data := make([]byte, MaxImageSize+1)

	assert.Equal(t, ErrImageTooLarge, svc.ValidateImage(data, "test.jpg"))
}

func TestValidateImage_InvalidFormat(t *testing.T) {
	svc := NewAvatarService(nil, nil, nil)
	data, _ := createTestImage(100, 100, "jpeg")

	assert.Equal(t, ErrInvalidFormat, svc.ValidateImage(data, "test.gif"))
}

func TestValidateImage_TooSmall(t *testing.T) {
	svc := NewAvatarService(nil, nil, nil)
	data, filename := createTestImage(30, 30, "jpeg")

	assert.Equal(t, ErrImageTooSmall, svc.ValidateImage(data, filename))
}

func TestValidateImage_InvalidData(t *testing.T) {
	svc := NewAvatarService(nil, nil, nil)

	assert.Equal(t, ErrInvalidImageData, svc.ValidateImage([]byte("not an image"), "test.jpg"))
}

func TestValidateImage_ExtensionCaseInsensitive(t *testing.T) {
	svc := NewAvatarService(nil, nil, nil)
	data, _ := createTestImage(60, 60, "png")

	assert.NoError(t, svc.ValidateImage(data, "Avatar.PNG"))
}

func TestValidateImage_TruncatedBody(t *testing.T) {
	svc := NewAvatarService(nil, nil, nil)
	data, filename := createTestImage(100, 100, "png")

	// The header still decodes, the pixel data does not
	assert.Equal(t, ErrInvalidImageData, svc.ValidateImage(data[:len(data)/2], filename))
}

func TestUploadAvatar_StorageNotConfigured(t *testing.T) {
	svc := NewAvatarService(nil, testutil.NewMockProfileRepository(), nil)
	data, filename := createTestImage(100, 100, "jpeg")

	assert.False(t, svc.IsEnabled())
	_, err := svc.UploadAvatar(context.Background(), 1, data, filename)
	assert.Equal(t, ErrImageStorageNotConfigured, err)
}

func TestUploadAvatar_Success(t *testing.T) {
	svc, images, repo, publisher := newTestAvatarService()
	repo.AddProfile(&domain.Profile{ID: 4, Email: "ada@x.com", ImageURL: strPtr("https://lh3.googleusercontent.com/a/pic")})
	data, filename := createTestImage(800, 600, "png")

	profile, err := svc.UploadAvatar(context.Background(), 4, data, filename)
	require.NoError(t, err)

	require.Len(t, images.Objects, 1)
	var objectPath string
	for path := range images.Objects {
		objectPath = path
	}
	assert.True(t, strings.HasPrefix(objectPath, "profiles/4/"), objectPath)
	assert.True(t, strings.HasSuffix(objectPath, ".jpg"), objectPath)

	stored, _, err := image.Decode(bytes.NewReader(images.Objects[objectPath]))
	require.NoError(t, err)
	assert.Equal(t, AvatarWidth, stored.Bounds().Dx())
	assert.Equal(t, 300, stored.Bounds().Dy())

	require.NotNil(t, profile.ImageURL)
	assert.Equal(t, "http://storage.test/avatars/"+objectPath, *profile.ImageURL)
	assert.Empty(t, images.Deleted, "provider-hosted pictures are not deleted")
	assert.Equal(t, []string{"profile.updated"}, publisher.Types())
}

func TestUploadAvatar_SmallImageKeepsSize(t *testing.T) {
	svc, images, repo, _ := newTestAvatarService()
	repo.AddProfile(&domain.Profile{ID: 4, Email: "ada@x.com"})
	data, filename := createTestImage(120, 80, "jpeg")

	_, err := svc.UploadAvatar(context.Background(), 4, data, filename)
	require.NoError(t, err)

	for _, obj := range images.Objects {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(obj))
		require.NoError(t, err)
		assert.Equal(t, 120, cfg.Width)
	}
}

func TestUploadAvatar_ReplacesStoredAvatar(t *testing.T) {
	svc, images, repo, _ := newTestAvatarService()
	repo.AddProfile(&domain.Profile{ID: 4, Email: "ada@x.com", ImageURL: strPtr("http://storage.test/avatars/profiles/4/old.jpg")})
	images.Objects["profiles/4/old.jpg"] = []byte("old")
	data, filename := createTestImage(100, 100, "jpeg")

	_, err := svc.UploadAvatar(context.Background(), 4, data, filename)
	require.NoError(t, err)

	assert.Equal(t, []string{"profiles/4/old.jpg"}, images.Deleted)
	assert.NotContains(t, images.Objects, "profiles/4/old.jpg")
	assert.Len(t, images.Objects, 1)
}

func TestUploadAvatar_ProfileNotFound(t *testing.T) {
	svc, images, _, _ := newTestAvatarService()
	data, filename := createTestImage(100, 100, "jpeg")

	_, err := svc.UploadAvatar(context.Background(), 99, data, filename)

	assert.True(t, errors.Is(err, domain.ErrProfileNotFound))
	assert.Empty(t, images.Objects)
}

func TestUploadAvatar_UploadFailure(t *testing.T) {
	svc, images, repo, publisher := newTestAvatarService()
	repo.AddProfile(&domain.Profile{ID: 4, Email: "ada@x.com"})
	images.UploadErr = errors.New("bucket unavailable")
	data, filename := createTestImage(100, 100, "jpeg")

	_, err := svc.UploadAvatar(context.Background(), 4, data, filename)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
	assert.Zero(t, repo.SaveCalls)
	assert.Empty(t, publisher.Events)
}

func TestUploadAvatar_InvalidImage(t *testing.T) {
	svc, images, repo, _ := newTestAvatarService()
	repo.AddProfile(&domain.Profile{ID: 4, Email: "ada@x.com"})

	_, err := svc.UploadAvatar(context.Background(), 4, []byte("nope"), "a.png")

	assert.Equal(t, ErrInvalidImageData, err)
	assert.Empty(t, images.Objects)
}
