package linkedin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/providers/httpx"
)

func TestFetchAnalytics_RestrictedTierReturnsNote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"li1","localizedFirstName":"Ana","localizedLastName":"Gómez"}`))
	}))
	defer srv.Close()

	a := New(providers.Config{APIBaseURL: srv.URL}, httpx.New(providers.LinkedIn, httpx.Options{}))
	res, err := a.FetchAnalytics(context.Background(), providers.Credential{AccessToken: "tok"})
	require.NoError(t, err)
	assert.True(t, res.Connected)
	assert.Equal(t, "Ana Gómez", res.Username)
	assert.Equal(t, RestrictedNote, res.Note)
	assert.Zero(t, res.Followers)
	assert.Zero(t, res.EngagementRate)
	assert.NotNil(t, res.TopContent)
	assert.Empty(t, res.TopContent)
}

func TestFetchAnalytics_ExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"serviceErrorCode":65600,"message":"Invalid access token","status":401}`))
	}))
	defer srv.Close()

	a := New(providers.Config{APIBaseURL: srv.URL}, httpx.New(providers.LinkedIn, httpx.Options{}))
	_, err := a.FetchAnalytics(context.Background(), providers.Credential{AccessToken: "old"})
	require.ErrorIs(t, err, providers.ErrUpstreamRejected)
	assert.Equal(t, "LinkedIn token expired or invalid", providers.UserMessage(err))
}

func TestExchange_ErrorDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request","error_description":"Unable to retrieve access token: authorization code not found"}`))
	}))
	defer srv.Close()

	a := New(providers.Config{ClientID: "c", ClientSecret: "s", TokenURL: srv.URL}, httpx.New(providers.LinkedIn, httpx.Options{}))
	_, err := a.Exchange(context.Background(), "x", nil)
	require.ErrorIs(t, err, providers.ErrUpstreamRejected)
	assert.Contains(t, providers.UserMessage(err), "authorization code not found")
}
