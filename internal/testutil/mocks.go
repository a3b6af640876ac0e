package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/scholarx/scholarx-backend/internal/domain"
	"github.com/scholarx/scholarx-backend/internal/repository/storage"
	"github.com/scholarx/scholarx-backend/internal/websocket"
)

// MockProfileRepository is an in-memory implementation of domain.ProfileRepository.
// It enforces the uid and email unique keys the way the database does.
type MockProfileRepository struct {
	mu       sync.Mutex
	Profiles map[int64]*domain.Profile
	nextID   int64

	// SaveCalls counts every Save invocation, successful or not
	SaveCalls int
	// FindErr, when set, is returned by FindByID and FindByUID
	FindErr error
	// SaveErr, when set, is returned by Save
	SaveErr error
}

var (
	_ domain.ProfileRepository = (*MockProfileRepository)(nil)
	_ websocket.EventPublisher = (*MockPublisher)(nil)
	_ storage.ImageRepository  = (*MockImageRepository)(nil)
)

// NewMockProfileRepository creates a new MockProfileRepository
func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		Profiles: make(map[int64]*domain.Profile),
		nextID:   1,
	}
}

// FindByID retrieves a copy of the stored profile
func (m *MockProfileRepository) FindByID(ctx context.Context, id int64) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FindErr != nil {
		return nil, m.FindErr
	}
	if p, ok := m.Profiles[id]; ok {
		return copyProfile(p), nil
	}
	return nil, domain.ErrProfileNotFound
}

// FindByUID retrieves a copy of the profile with the given uid
func (m *MockProfileRepository) FindByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FindErr != nil {
		return nil, m.FindErr
	}
	if p := m.byUID(uid); p != nil {
		return copyProfile(p), nil
	}
	return nil, domain.ErrProfileNotFound
}

// ExistsByUID reports whether a profile has the given uid
func (m *MockProfileRepository) ExistsByUID(ctx context.Context, uid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byUID(uid) != nil, nil
}

// ExistsByEmail reports whether a profile has the given email
func (m *MockProfileRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail(email) != nil, nil
}

// Save inserts or updates a profile, assigning an ID on insert
func (m *MockProfileRepository) Save(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}

	if profile.UID != nil {
		if other := m.byUID(*profile.UID); other != nil && other.ID != profile.ID {
			return nil, fmt.Errorf("%w: constraint profiles_uid_key", domain.ErrDuplicateUser)
		}
	}
	if other := m.byEmail(profile.Email); other != nil && other.ID != profile.ID {
		return nil, fmt.Errorf("%w: constraint profiles_email_key", domain.ErrDuplicateUser)
	}

	stored := copyProfile(profile)
	if stored.ID == 0 {
		stored.ID = m.nextID
		m.nextID++
	} else if _, ok := m.Profiles[stored.ID]; !ok {
		return nil, domain.ErrProfileNotFound
	}
	m.Profiles[stored.ID] = stored
	return copyProfile(stored), nil
}

// AddProfile stores a profile directly (helper for tests)
func (m *MockProfileRepository) AddProfile(profile *domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if profile.ID == 0 {
		profile.ID = m.nextID
	}
	if profile.ID >= m.nextID {
		m.nextID = profile.ID + 1
	}
	m.Profiles[profile.ID] = copyProfile(profile)
}

// Count returns the number of stored profiles
func (m *MockProfileRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Profiles)
}

func (m *MockProfileRepository) byUID(uid string) *domain.Profile {
	for _, p := range m.Profiles {
		if p.UID != nil && *p.UID == uid {
			return p
		}
	}
	return nil
}

func (m *MockProfileRepository) byEmail(email string) *domain.Profile {
	for _, p := range m.Profiles {
		if p.Email == email {
			return p
		}
	}
	return nil
}

func copyProfile(p *domain.Profile) *domain.Profile {
	c := *p
	if p.UID != nil {
		uid := *p.UID
		c.UID = &uid
	}
	if p.ImageURL != nil {
		url := *p.ImageURL
		c.ImageURL = &url
	}
	return &c
}

// PublishedEvent is an event captured by MockPublisher
type PublishedEvent struct {
	ProfileID int64
	Event     websocket.Event
}

// MockPublisher records published websocket events
type MockPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish implements websocket.EventPublisher
func (m *MockPublisher) Publish(profileID int64, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{ProfileID: profileID, Event: event})
}

// Types returns the type of every published event in order
func (m *MockPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.Event.Type)
	}
	return types
}

// MockImageRepository is an in-memory implementation of storage.ImageRepository
type MockImageRepository struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string

	UploadErr error
}

// NewMockImageRepository creates a new MockImageRepository
func NewMockImageRepository() *MockImageRepository {
	return &MockImageRepository{Objects: make(map[string][]byte)}
}

// Upload stores the object in memory and returns its path
func (m *MockImageRepository) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectPath] = buf
	return objectPath, nil
}

// Delete removes the object from memory
func (m *MockImageRepository) Delete(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectPath)
	m.Deleted = append(m.Deleted, objectPath)
	return nil
}

// URL returns a fake public URL for an object
func (m *MockImageRepository) URL(objectPath string) string {
	return "http://storage.test/avatars/" + objectPath
}

// ObjectPath inverts URL
func (m *MockImageRepository) ObjectPath(url string) (string, bool) {
	path, ok := strings.CutPrefix(url, "http://storage.test/avatars/")
	return path, ok && path != ""
}
