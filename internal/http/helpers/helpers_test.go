package helpers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httperrors "github.com/dropDatabas3/socialpulse/internal/http/errors"
	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	var dst struct {
		Platform string `json:"platform"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"platform":"twitter","other":1}`))
	r.Header.Set("Content-Type", "application/json")
	require.NoError(t, ReadJSON(httptest.NewRecorder(), r, &dst))
	assert.Equal(t, "twitter", dst.Platform)
}

func TestReadJSON_Errors(t *testing.T) {
	var dst map[string]any

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "text/plain")
	err := ReadJSON(httptest.NewRecorder(), r, &dst)
	var appErr *httperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_JSON", appErr.Code)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":`))
	r.Header.Set("Content-Type", "application/json")
	require.Error(t, ReadJSON(httptest.NewRecorder(), r, &dst))

	big := `{"a":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	r.Header.Set("Content-Type", "application/json")
	err = ReadJSON(httptest.NewRecorder(), r, &dst)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "BODY_TOO_LARGE", appErr.Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

func TestProviderError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{providers.ErrUnknownProvider, http.StatusBadRequest},
		{providers.ErrNotConfigured, http.StatusInternalServerError},
		{providers.ErrNotConnected, http.StatusNotFound},
		{providers.Rejected(providers.Twitter, 401, "Unauthorized"), http.StatusBadRequest},
		{providers.Unreachable(providers.Twitter, errors.New("timeout")), http.StatusBadGateway},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, ProviderError(c.err).HTTPStatus, c.err.Error())
	}
	assert.Equal(t, "Unauthorized", ProviderError(cases[3].err).Detail)
}
