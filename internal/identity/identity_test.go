package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, ErrMissingToken, h)
	}
}

func newGoTrueServer(t *testing.T, h http.HandlerFunc) *GoTrue {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGoTrue(GoTrueConfig{URL: srv.URL, AnonKey: "anon", ServiceKey: "service"})
}

func TestGoTrueVerify(t *testing.T) {
	g := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"u-1","email":"ana@example.com","user_metadata":{"name":"Ana"}}`))
		case "Bearer boom":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
		}
	})
	gate := NewGate(g)

	u, err := gate.Authenticate(context.Background(), "Bearer good")
	require.NoError(t, err)
	assert.Equal(t, &UserIdentity{ID: "u-1", Email: "ana@example.com", Name: "Ana"}, u)

	_, err = gate.Authenticate(context.Background(), "Bearer bad")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = gate.Authenticate(context.Background(), "Bearer boom")
	require.ErrorIs(t, err, ErrServiceUnavailable)

	_, err = gate.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestGoTrueVerify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	g := NewGoTrue(GoTrueConfig{URL: addr, Timeout: time.Second})
	_, err := g.Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestGoTrueCreateUser(t *testing.T) {
	g := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] == "taken@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"error_code":"email_exists","msg":"A user with this email address has already been registered"}`))
			return
		}
		assert.Equal(t, true, body["email_confirm"])
		_, _ = w.Write([]byte(`{"id":"u-9","email":"new@example.com","user_metadata":{"name":"New"}}`))
	})

	u, err := g.CreateUser(context.Background(), "new@example.com", "secret1", "New")
	require.NoError(t, err)
	assert.Equal(t, "u-9", u.ID)

	_, err = g.CreateUser(context.Background(), "taken@example.com", "secret1", "X")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestGoTrueAdminRequiresServiceKey(t *testing.T) {
	g := NewGoTrue(GoTrueConfig{URL: "http://127.0.0.1:1", AnonKey: "anon"})
	_, err := g.CreateUser(context.Background(), "a@b.c", "secret1", "")
	require.ErrorIs(t, err, ErrAdminUnavailable)
	require.ErrorIs(t, g.DeleteUser(context.Background(), "u"), ErrAdminUnavailable)
}

func TestGoTrueSignIn(t *testing.T) {
	g := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "right-pass" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":3600}`))
	})

	s, err := g.SignIn(context.Background(), "ana@example.com", "right-pass")
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)

	_, err = g.SignIn(context.Background(), "ana@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func signHS256(t *testing.T, secret string, claims jwtv5.MapClaims) string {
	t.Helper()
	s, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier("s3cr3t", "authenticated")
	require.NoError(t, err)

	ok := signHS256(t, "s3cr3t", jwtv5.MapClaims{
		"sub":           "u-1",
		"email":         "ana@example.com",
		"aud":           "authenticated",
		"exp":           time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]any{"name": "Ana"},
	})
	u, err := v.Verify(context.Background(), ok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "Ana", u.Name)

	expired := signHS256(t, "s3cr3t", jwtv5.MapClaims{"sub": "u-1", "aud": "authenticated", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err = v.Verify(context.Background(), expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongKey := signHS256(t, "other", jwtv5.MapClaims{"sub": "u-1", "aud": "authenticated", "exp": time.Now().Add(time.Hour).Unix()})
	_, err = v.Verify(context.Background(), wrongKey)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongAud := signHS256(t, "s3cr3t", jwtv5.MapClaims{"sub": "u-1", "aud": "anon", "exp": time.Now().Add(time.Hour).Unix()})
	_, err = v.Verify(context.Background(), wrongAud)
	require.ErrorIs(t, err, ErrInvalidToken)

	noSub := signHS256(t, "s3cr3t", jwtv5.MapClaims{"aud": "authenticated", "exp": time.Now().Add(time.Hour).Unix()})
	_, err = v.Verify(context.Background(), noSub)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTVerifier("", "")
	require.Error(t, err)
}
