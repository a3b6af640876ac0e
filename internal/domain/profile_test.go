package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFirst string
		wantLast  string
	}{
		{"two words", "Ada Lovelace", "Ada", "Lovelace"},
		{"three words keeps remainder as last name", "Ada King Lovelace", "Ada", "King Lovelace"},
		{"single word", "Ada", "Ada", ""},
		{"trailing space", "Ada ", "Ada", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitName(tt.input)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

func TestProfile_SetName(t *testing.T) {
	p := &Profile{FirstName: "Old", LastName: "Name"}

	p.SetName("Grace Hopper")

	assert.Equal(t, "Grace", p.FirstName)
	assert.Equal(t, "Hopper", p.LastName)
}

func TestGoogleUserInfo(t *testing.T) {
	info := NewGoogleUserInfo(IdentityAttributes{
		"sub":     "g-1",
		"name":    "Ada Lovelace",
		"email":   "ada@x.com",
		"picture": "http://x/y.png",
	})

	assert.Equal(t, "g-1", info.ID())
	assert.Equal(t, "Ada Lovelace", info.Name())
	assert.Equal(t, "ada@x.com", info.Email())
	assert.Equal(t, "http://x/y.png", info.ImageURL())
}

func TestGoogleUserInfo_MissingOrMistypedClaims(t *testing.T) {
	info := NewGoogleUserInfo(IdentityAttributes{
		"sub":   12345,
		"email": nil,
	})

	assert.Empty(t, info.ID())
	assert.Empty(t, info.Name())
	assert.Empty(t, info.Email())
	assert.Empty(t, info.ImageURL())
}

func TestGoogleUserInfo_NilAttributes(t *testing.T) {
	info := NewGoogleUserInfo(nil)

	assert.Empty(t, info.Name())
}
