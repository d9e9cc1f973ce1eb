package providers

import (
	"context"
	"strings"
	"time"
)

// Adapter is implemented once per provider. Adapters are stateless apart
// from their Config and may be called concurrently.
type Adapter interface {
	Provider() Provider

	// Configured reports whether client credentials are present.
	Configured() bool

	// PrepareState returns provider-specific values persisted next to the
	// OAuth state (e.g. a PKCE verifier). May return nil.
	PrepareState() (map[string]string, error)

	// AuthorizeURL builds the consent URL. extra is what PrepareState returned.
	AuthorizeURL(state string, extra map[string]string) (string, error)

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string, extra map[string]string) (*TokenSet, error)

	// Profile resolves the account the tokens belong to.
	Profile(ctx context.Context, tokens *TokenSet) (*Account, error)

	// FetchAnalytics reads account counters and recent content and
	// normalizes them. Tokens are never refreshed here.
	FetchAnalytics(ctx context.Context, cred Credential) (*Analytics, error)
}

// Config holds the client registration for one provider. Empty endpoint
// fields fall back to the provider's public endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	APIBaseURL string
}

// Configured reports whether the client id and secret are set.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Or returns v, or def when v is empty.
func Or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Handle renders a username the way it is shown to the user: "@name".
// Empty stays empty.
func Handle(username string) string {
	if username == "" || strings.HasPrefix(username, "@") {
		return username
	}
	return "@" + username
}

// TokenSet contains tokens received from the provider.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int

	// UserID is set when the token response already names the account
	// (Instagram user_id, TikTok open_id).
	UserID string
}

// Account is the provider-side identity of a connected user.
type Account struct {
	ID          string
	Username    string
	DisplayName string
}

// Label is the value shown to the user after connecting.
func (a *Account) Label() string {
	if a == nil {
		return ""
	}
	if a.Username != "" {
		return a.Username
	}
	return a.DisplayName
}

// Credential is what the service persists per (user, provider).
type Credential struct {
	AccessToken    string
	RefreshToken   string
	ProviderUserID string
	Username       string
	ConnectedAt    time.Time
	ExpiresAt      *time.Time
}
