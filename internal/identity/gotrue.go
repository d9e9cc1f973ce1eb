package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoTrue talks to a GoTrue compatible auth server (Supabase Auth).
// It implements both Verifier and Admin.
type GoTrue struct {
	baseURL    string
	anonKey    string
	serviceKey string
	http       *http.Client
}

// GoTrueConfig configures a GoTrue client. ServiceKey is only needed for
// the admin API.
type GoTrueConfig struct {
	URL        string
	AnonKey    string
	ServiceKey string
	Timeout    time.Duration
}

func NewGoTrue(cfg GoTrueConfig) *GoTrue {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GoTrue{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		http:       &http.Client{Timeout: cfg.Timeout},
	}
}

type gotrueUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

func (u gotrueUser) identity() *UserIdentity {
	return &UserIdentity{ID: u.ID, Email: u.Email, Name: u.UserMetadata.Name}
}

type gotrueError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (e gotrueError) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if s, ok := e.Code.(string); ok {
		return s
	}
	return ""
}

func (g *GoTrue) do(ctx context.Context, method, path, bearer string, body, dst any) (int, *gotrueError, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rdr)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	apikey := g.anonKey
	if bearer == g.serviceKey && g.serviceKey != "" {
		apikey = g.serviceKey
	}
	if apikey != "" {
		req.Header.Set("apikey", apikey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 300 {
		var ge gotrueError
		_ = json.Unmarshal(raw, &ge)
		return resp.StatusCode, &ge, nil
	}
	if dst != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return resp.StatusCode, nil, fmt.Errorf("identity: decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil, nil
}

// Verify resolves the token with GET /user. 401/403 means invalid token;
// anything else unexpected is reported as unavailable.
func (g *GoTrue) Verify(ctx context.Context, token string) (*UserIdentity, error) {
	var u gotrueUser
	status, ge, err := g.do(ctx, http.MethodGet, "/user", token, nil, &u)
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	switch {
	case ge == nil && u.ID != "":
		return u.identity(), nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusBadRequest, status == http.StatusNotFound:
		return nil, ErrInvalidToken
	case ge == nil:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, status)
	}
}

func (g *GoTrue) requireAdmin() error {
	if g.serviceKey == "" {
		return ErrAdminUnavailable
	}
	return nil
}

func (g *GoTrue) CreateUser(ctx context.Context, email, password, name string) (*UserIdentity, error) {
	if err := g.requireAdmin(); err != nil {
		return nil, err
	}
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": map[string]string{"name": name},
	}
	var u gotrueUser
	status, ge, err := g.do(ctx, http.MethodPost, "/admin/users", g.serviceKey, body, &u)
	if err != nil {
		return nil, err
	}
	if ge != nil {
		if ge.code() == "email_exists" || ge.code() == "user_already_exists" ||
			strings.Contains(strings.ToLower(ge.text()), "already been registered") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("identity: create user: status %d: %s", status, ge.text())
	}
	return u.identity(), nil
}

func (g *GoTrue) UpdateUser(ctx context.Context, id string, upd UserUpdate) error {
	if err := g.requireAdmin(); err != nil {
		return err
	}
	body := map[string]any{}
	if upd.Email != "" {
		body["email"] = upd.Email
	}
	if upd.Password != "" {
		body["password"] = upd.Password
	}
	if upd.Name != "" {
		body["user_metadata"] = map[string]string{"name": upd.Name}
	}
	status, ge, err := g.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), g.serviceKey, body, nil)
	if err != nil {
		return err
	}
	if ge != nil {
		if status == http.StatusNotFound {
			return ErrUserNotFound
		}
		if ge.code() == "email_exists" {
			return ErrEmailTaken
		}
		return fmt.Errorf("identity: update user: status %d: %s", status, ge.text())
	}
	return nil
}

func (g *GoTrue) DeleteUser(ctx context.Context, id string) error {
	if err := g.requireAdmin(); err != nil {
		return err
	}
	status, ge, err := g.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), g.serviceKey, nil, nil)
	if err != nil {
		return err
	}
	if ge != nil && status != http.StatusNotFound {
		return fmt.Errorf("identity: delete user: status %d: %s", status, ge.text())
	}
	return nil
}

func (g *GoTrue) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	status, ge, err := g.do(ctx, http.MethodPost, "/token?grant_type=password", "",
		map[string]string{"email": email, "password": password}, &s)
	if err != nil {
		return nil, err
	}
	if ge != nil {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, status)
	}
	return &s, nil
}
