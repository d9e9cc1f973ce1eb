// Package identity authenticates bearer tokens against the external
// identity service and wraps its admin API (user create/update/delete,
// password sign-in).
//
// The gate keeps no cache and never retries: every protected request
// resolves its token again.
package identity

import (
	"context"
	"errors"
	"strings"
)

// UserIdentity is the authenticated end user. It is resolved per request
// and threaded through context; never stored globally.
type UserIdentity struct {
	ID    string
	Email string
	Name  string
}

var (
	ErrMissingToken       = errors.New("identity: missing bearer token")
	ErrInvalidToken       = errors.New("identity: invalid token")
	ErrServiceUnavailable = errors.New("identity: service unavailable")

	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrUserNotFound       = errors.New("identity: user not found")
	ErrAdminUnavailable   = errors.New("identity: admin API not configured")
)

// Verifier resolves a raw access token to a user.
type Verifier interface {
	Verify(ctx context.Context, token string) (*UserIdentity, error)
}

// Session is returned by a successful password sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// UserUpdate carries the fields to change; empty fields are left as is.
type UserUpdate struct {
	Email    string
	Password string
	Name     string
}

// Admin manages users in the identity service.
type Admin interface {
	CreateUser(ctx context.Context, email, password, name string) (*UserIdentity, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) error
	DeleteUser(ctx context.Context, id string) error
	SignIn(ctx context.Context, email, password string) (*Session, error)
}

// Gate is the authentication entry point used by every protected endpoint.
type Gate struct {
	verifier Verifier
}

func NewGate(v Verifier) *Gate { return &Gate{verifier: v} }

// Authenticate parses an Authorization header value and verifies the token.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (*UserIdentity, error) {
	token, err := BearerToken(authorization)
	if err != nil {
		return nil, err
	}
	return g.verifier.Verify(ctx, token)
}

// BearerToken extracts the token from "Bearer <token>".
func BearerToken(authorization string) (string, error) {
	ah := strings.TrimSpace(authorization)
	if len(ah) < len("bearer ") || !strings.EqualFold(ah[:len("bearer ")], "bearer ") {
		return "", ErrMissingToken
	}
	tok := strings.TrimSpace(ah[len("bearer "):])
	if tok == "" {
		return "", ErrMissingToken
	}
	return tok, nil
}

// DisabledAdmin is used when no identity service URL is configured
// (local JWT verification only). Every call reports ErrAdminUnavailable.
type DisabledAdmin struct{}

func (DisabledAdmin) CreateUser(context.Context, string, string, string) (*UserIdentity, error) {
	return nil, ErrAdminUnavailable
}

func (DisabledAdmin) UpdateUser(context.Context, string, UserUpdate) error {
	return ErrAdminUnavailable
}

func (DisabledAdmin) DeleteUser(context.Context, string) error { return ErrAdminUnavailable }

func (DisabledAdmin) SignIn(context.Context, string, string) (*Session, error) {
	return nil, ErrAdminUnavailable
}
