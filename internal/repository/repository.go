// Package repository is the typed persistence layer over kv.Client:
// OAuth state tokens, per-provider credentials, profiles and the
// connected-accounts list.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/socialpulse/internal/kv"
	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/security/secretbox"
)

var (
	// ErrStateNotFound covers unknown, expired and already consumed states alike.
	ErrStateNotFound = errors.New("repository: oauth state not found")
	ErrNotFound      = errors.New("repository: not found")
)

// Repository persists service data in a kv.Client. When box is non-nil,
// access and refresh tokens are sealed before writing.
type Repository struct {
	kv  kv.Client
	box *secretbox.Box
}

func New(client kv.Client, box *secretbox.Box) *Repository {
	return &Repository{kv: client, box: box}
}

// Ping checks the backing store.
func (r *Repository) Ping(ctx context.Context) error { return r.kv.Ping(ctx) }

// =================================================================================
// OAUTH STATE
// =================================================================================

// OAuthState binds an in-flight authorization to the user who started it.
type OAuthState struct {
	Token     string            `json:"state"`
	UserID    string            `json:"userId"`
	Provider  string            `json:"platform"`
	Extra     map[string]string `json:"extra,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (r *Repository) SaveState(ctx context.Context, st OAuthState, ttl time.Duration) error {
	return kv.SetJSON(ctx, r.kv, stateKey(st.Token), st, ttl)
}

// TakeState consumes the state atomically; a second call for the same
// token returns ErrStateNotFound.
func (r *Repository) TakeState(ctx context.Context, token string) (*OAuthState, error) {
	if token == "" {
		return nil, ErrStateNotFound
	}
	var st OAuthState
	if err := kv.TakeJSON(ctx, r.kv, stateKey(token), &st); err != nil {
		if kv.IsNotFound(err) {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	return &st, nil
}

// =================================================================================
// CREDENTIALS
// =================================================================================

type credentialRecord struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	UserID       string     `json:"userId,omitempty"`
	Username     string     `json:"username,omitempty"`
	Name         string     `json:"name,omitempty"` // older records used name for page/member accounts
	ConnectedAt  time.Time  `json:"connectedAt"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

func (c credentialRecord) label() string {
	return providers.Or(c.Username, c.Name)
}

func (r *Repository) seal(plain, aad string) (string, error) {
	if r.box == nil || plain == "" {
		return plain, nil
	}
	return r.box.Seal(plain, aad)
}

func (r *Repository) open(stored, aad string) (string, error) {
	if stored == "" || !secretbox.IsSealed(stored) {
		return stored, nil
	}
	if r.box == nil {
		return "", errors.New("repository: credential is sealed but no secretbox key is configured")
	}
	return r.box.Open(stored, aad)
}

// PutCredential overwrites the credential for (user, provider).
func (r *Repository) PutCredential(ctx context.Context, userID string, p providers.Provider, c providers.Credential) error {
	key := credentialKey(userID, p)
	at, err := r.seal(c.AccessToken, key)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	rt, err := r.seal(c.RefreshToken, key)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	rec := credentialRecord{
		AccessToken:  at,
		RefreshToken: rt,
		UserID:       c.ProviderUserID,
		Username:     c.Username,
		ConnectedAt:  c.ConnectedAt.UTC(),
		ExpiresAt:    c.ExpiresAt,
	}
	return kv.SetJSON(ctx, r.kv, key, rec, 0)
}

// GetCredential returns providers.ErrNotConnected when nothing usable is stored.
func (r *Repository) GetCredential(ctx context.Context, userID string, p providers.Provider) (*providers.Credential, error) {
	key := credentialKey(userID, p)
	var rec credentialRecord
	if err := kv.GetJSON(ctx, r.kv, key, &rec); err != nil {
		if kv.IsNotFound(err) {
			return nil, providers.ErrNotConnected
		}
		return nil, err
	}
	if rec.AccessToken == "" {
		return nil, providers.ErrNotConnected
	}
	at, err := r.open(rec.AccessToken, key)
	if err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	rt, err := r.open(rec.RefreshToken, key)
	if err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}
	return &providers.Credential{
		AccessToken:    at,
		RefreshToken:   rt,
		ProviderUserID: rec.UserID,
		Username:       rec.label(),
		ConnectedAt:    rec.ConnectedAt,
		ExpiresAt:      rec.ExpiresAt,
	}, nil
}

// CredentialSummary is the non-secret part of a credential, used by status.
type CredentialSummary struct {
	Username    string
	ConnectedAt time.Time
}

// GetCredentialSummary reads a credential without decrypting its tokens.
func (r *Repository) GetCredentialSummary(ctx context.Context, userID string, p providers.Provider) (*CredentialSummary, error) {
	var rec credentialRecord
	if err := kv.GetJSON(ctx, r.kv, credentialKey(userID, p), &rec); err != nil {
		if kv.IsNotFound(err) {
			return nil, providers.ErrNotConnected
		}
		return nil, err
	}
	if rec.AccessToken == "" {
		return nil, providers.ErrNotConnected
	}
	return &CredentialSummary{Username: rec.label(), ConnectedAt: rec.ConnectedAt}, nil
}

// DeleteCredential is idempotent.
func (r *Repository) DeleteCredential(ctx context.Context, userID string, p providers.Provider) error {
	return r.kv.Delete(ctx, credentialKey(userID, p))
}

// =================================================================================
// PROFILE / CONNECTED ACCOUNTS
// =================================================================================

type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (r *Repository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if err := kv.GetJSON(ctx, r.kv, profileKey(userID), &p); err != nil {
		if kv.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) PutProfile(ctx context.Context, p Profile) error {
	return kv.SetJSON(ctx, r.kv, profileKey(p.ID), p, 0)
}

// ConnectedAccounts returns the user's self-declared account list;
// missing means empty.
func (r *Repository) ConnectedAccounts(ctx context.Context, userID string) ([]string, error) {
	var out []string
	if err := kv.GetJSON(ctx, r.kv, connectedAccountsKey(userID), &out); err != nil {
		if kv.IsNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (r *Repository) SetConnectedAccounts(ctx context.Context, userID string, accounts []string) error {
	if accounts == nil {
		accounts = []string{}
	}
	return kv.SetJSON(ctx, r.kv, connectedAccountsKey(userID), accounts, 0)
}

// DeleteUserData removes every key under the user's prefix and returns
// how many were deleted.
func (r *Repository) DeleteUserData(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("repository: empty user id")
	}
	keys, err := r.kv.Keys(ctx, userPrefix(userID))
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := r.kv.Delete(ctx, k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}
