package domain

import (
	"encoding/json"
	"time"
)

// AuthType is how a tool provider authenticates calls.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "apikey"
	AuthOAuth  AuthType = "oauth"
)

// Valid reports whether a is a known auth type.
func (a AuthType) Valid() bool {
	switch a {
	case AuthNone, AuthBearer, AuthAPIKey, AuthOAuth:
		return true
	}
	return false
}

// ToolProvider is an external MCP server registered by a user.
type ToolProvider struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	Description string          `json:"description,omitempty"`
	AuthType    AuthType        `json:"authType"`
	Credentials json.RawMessage `json:"credentials,omitempty"`
	RemoteID    string          `json:"flaskServerId,omitempty"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProviderCredentials is the decoded form of ToolProvider.Credentials.
type ProviderCredentials struct {
	Token        string   `json:"token,omitempty"`
	APIKey       string   `json:"apiKey,omitempty"`
	ClientID     string   `json:"clientId,omitempty"`
	ClientSecret string   `json:"clientSecret,omitempty"`
	TokenURL     string   `json:"tokenUrl,omitempty"`
	AuthURL      string   `json:"authUrl,omitempty"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	AccessToken  string   `json:"accessToken,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// DecodeCredentials parses the credentials blob. Empty credentials decode to
// the zero value.
func (p ToolProvider) DecodeCredentials() (ProviderCredentials, error) {
	var c ProviderCredentials
	if len(p.Credentials) == 0 || string(p.Credentials) == "null" {
		return c, nil
	}
	err := json.Unmarshal(p.Credentials, &c)
	return c, err
}

// ServerID is the id used when talking to the provider gateway. It falls
// back to the local id for providers registered without a remote id.
func (p ToolProvider) ServerID() string {
	if p.RemoteID != "" {
		return p.RemoteID
	}
	return p.ID
}
