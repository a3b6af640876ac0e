package domain

// IdentityAttributes is the raw claim set returned by the identity provider
type IdentityAttributes map[string]any

// GoogleUserInfo reads the standard Google OpenID Connect claims
type GoogleUserInfo struct {
	attributes IdentityAttributes
}

// NewGoogleUserInfo wraps a claim set
func NewGoogleUserInfo(attributes IdentityAttributes) GoogleUserInfo {
	return GoogleUserInfo{attributes: attributes}
}

// ID returns the provider subject identifier
func (g GoogleUserInfo) ID() string {
	return g.get("sub")
}

// Name returns the full display name
func (g GoogleUserInfo) Name() string {
	return g.get("name")
}

// Email returns the account email
func (g GoogleUserInfo) Email() string {
	return g.get("email")
}

// ImageURL returns the picture URL
func (g GoogleUserInfo) ImageURL() string {
	return g.get("picture")
}

func (g GoogleUserInfo) get(key string) string {
	if v, ok := g.attributes[key].(string); ok {
		return v
	}
	return ""
}
