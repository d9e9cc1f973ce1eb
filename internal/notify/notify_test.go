package notify

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialpulse/internal/providers"
)

func TestRender_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, NewRenderer("").Render(rec, Success(providers.Twitter, "@ana_dev")))

	body := rec.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, `"type":"oauth-success"`)
	assert.Contains(t, body, `"platform":"twitter"`)
	assert.Contains(t, body, `"username":"@ana_dev"`)
	assert.NotContains(t, body, `"error"`)
	assert.Contains(t, body, "window.close()")
	assert.Contains(t, body, `"*"`)
}

func TestRender_NonceMatchesCSP(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, NewRenderer("https://app.example.com").Render(rec, Failure(providers.TikTok, "access_denied")))

	csp := rec.Header().Get("Content-Security-Policy")
	i := strings.Index(csp, "'nonce-")
	require.GreaterOrEqual(t, i, 0)
	nonce := csp[i+len("'nonce-"):]
	nonce = nonce[:strings.Index(nonce, "'")]
	assert.Contains(t, rec.Body.String(), `nonce="`+nonce+`"`)
	assert.Contains(t, rec.Body.String(), "app.example.com")
}

func TestRender_EscapesProviderSuppliedText(t *testing.T) {
	rec := httptest.NewRecorder()
	evil := `</script><script>alert(1)</script>'`
	require.NoError(t, NewRenderer("").Render(rec, Failure(providers.Facebook, evil)))

	body := rec.Body.String()
	assert.NotContains(t, body, "<script>alert(1)")
	assert.Equal(t, 1, strings.Count(body, "</script>"))
}

func TestOpenerScriptEmbedded(t *testing.T) {
	js := string(OpenerScript())
	assert.Contains(t, js, "connectPlatform")
	assert.Contains(t, js, "removeEventListener")
}
