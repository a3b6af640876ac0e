package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/scholarx/scholarx-backend/internal/domain"
	"github.com/scholarx/scholarx-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileTestHandler() (*ProfileHandler, *testutil.MockProfileRepository) {
	repo := testutil.NewMockProfileRepository()
	uid := "g-1"
	repo.AddProfile(&domain.Profile{
		ID:        1,
		UID:       &uid,
		Email:     "ada@x.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Type:      domain.ProfileTypeDefault,
	})
	return NewProfileHandler(newTestProfileService(repo)), repo
}

func TestGetProfile_Success(t *testing.T) {
	h, _ := newProfileTestHandler()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setProfileContext(c, "g-1", 1)

	require.NoError(t, h.GetProfile(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var profile domain.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, int64(1), profile.ID)
	assert.Equal(t, "ada@x.com", profile.Email)
	assert.Equal(t, "Ada", profile.FirstName)
}

func TestGetProfile_MissingProfileID(t *testing.T) {
	h, _ := newProfileTestHandler()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil), rec)

	require.NoError(t, h.GetProfile(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetProfile_NotFound(t *testing.T) {
	h, _ := newProfileTestHandler()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil), rec)
	setProfileContext(c, "g-9", 9)

	require.NoError(t, h.GetProfile(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func updateProfile(t *testing.T, h *ProfileHandler, profileID int64, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setProfileContext(c, "g-1", profileID)

	require.NoError(t, h.UpdateProfile(c))
	return rec
}

func TestUpdateProfile_Success(t *testing.T) {
	h, repo := newProfileTestHandler()

	rec := updateProfile(t, h, 1, `{"email":"  lovelace@x.com "}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var profile domain.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "lovelace@x.com", profile.Email)
	assert.True(t, profile.HasConfirmedUserDetails)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.Equal(t, 1, repo.SaveCalls)
}

func TestUpdateProfile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"email":`},
		{"missing email", `{}`},
		{"blank email", `{"email":"   "}`},
		{"not an address", `{"email":"lovelace"}`},
		{"too long", `{"email":"` + strings.Repeat("a", 250) + `@x.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, repo := newProfileTestHandler()

			rec := updateProfile(t, h, 1, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, repo.SaveCalls)
		})
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	h, repo := newProfileTestHandler()

	rec := updateProfile(t, h, 9, `{"email":"x@x.com"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, repo.SaveCalls)
}

func TestUpdateProfile_EmailConflict(t *testing.T) {
	h, repo := newProfileTestHandler()
	repo.AddProfile(&domain.Profile{ID: 2, Email: "taken@x.com"})

	rec := updateProfile(t, h, 1, `{"email":"taken@x.com"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"ada@x.com", true},
		{"ada.lovelace+tag@scholarx.app", true},
		{"", false},
		{"lovelace", false},
		{"Ada <ada@x.com>", false},
		{strings.Repeat("a", 250) + "@x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.ok, checkEmail(tt.email) == "")
		})
	}
}
