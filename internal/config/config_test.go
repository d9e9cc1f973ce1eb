package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialpulse/internal/providers"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("IDENTITY_URL", "https://id.example.com")

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.KV.Driver)
	assert.Equal(t, "gotrue", c.Identity.Mode)
	assert.Equal(t, "*", c.Server.NotifyTargetOrigin)
	assert.Equal(t, 10*time.Minute, c.StateTTL())
	assert.Equal(t, 8*time.Second, c.ProviderTimeout())
	assert.Equal(t, "http://localhost:8080/oauth/twitter/callback", c.ProviderConfig(providers.Twitter).RedirectURL)
	assert.False(t, c.ProviderConfig(providers.Twitter).Configured())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeYAML(t, `
server:
  addr: ":9000"
  public_base_url: "https://api.example.com/"
kv:
  driver: redis
  redis:
    addr: "localhost:6379"
identity:
  mode: jwt
  jwt_secret: "s3cret"
providers:
  linkedin:
    client_id: "li-id"
    client_secret: "li-secret"
    scopes: ["r_liteprofile"]
`)
	t.Setenv("REDIS_DB", "3")
	t.Setenv("FACEBOOK_APP_ID", "meta-id")
	t.Setenv("FACEBOOK_APP_SECRET", "meta-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, 3, c.KV.Redis.DB)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, c.Server.CORSAllowedOrigins)

	li := c.ProviderConfig(providers.LinkedIn)
	assert.True(t, li.Configured())
	assert.Equal(t, []string{"r_liteprofile"}, li.Scopes)
	assert.Equal(t, "https://api.example.com/oauth/linkedin/callback", li.RedirectURL)

	// la app de Meta cubre instagram y facebook
	assert.True(t, c.ProviderConfig(providers.Instagram).Configured())
	assert.True(t, c.ProviderConfig(providers.Facebook).Configured())
	assert.False(t, c.ProviderConfig(providers.TikTok).Configured())
}

func TestLoad_SupabaseFallbacks(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://xyz.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://xyz.supabase.co", c.Identity.URL)
	assert.Equal(t, "anon", c.Identity.AnonKey)
	assert.Equal(t, "service", c.Identity.ServiceKey)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad duration":     "identity: {url: x}\noauth: {state_ttl: soon}\n",
		"unknown driver":   "identity: {url: x}\nkv: {driver: etcd}\n",
		"redis no addr":    "identity: {url: x}\nkv: {driver: redis}\n",
		"gotrue no url":    "identity: {mode: gotrue}\n",
		"jwt no secret":    "identity: {mode: jwt}\n",
		"bad secretbox":    "identity: {url: x}\nsecurity: {secretbox_master_key: short}\n",
		"prod no key":      "app: {env: prod}\nidentity: {url: x}\n",
		"unknown provider": "identity: {url: x}\nproviders: {myspace: {client_id: a}}\n",
		"bad scope":        "identity: {url: x}\nproviders: {twitter: {scopes: [\"tweet read\"]}}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("IDENTITY_URL", "https://id.example.com")

	c, err := Load(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173", c.Server.NotifyTargetOrigin)
	assert.Equal(t, []string{"tweet.read", "users.read", "offline.access"}, c.ProviderConfig(providers.Twitter).Scopes)
	assert.True(t, c.Rate.Enabled)
}
