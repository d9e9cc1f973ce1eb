package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/security/secretbox"
	"github.com/dropDatabas3/socialpulse/internal/validation"
)

// ProviderConfig es el registro OAuth de una red social.
// Los endpoints vacíos usan los públicos del proveedor.
type ProviderConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	APIBaseURL   string   `yaml:"api_base_url"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		PublicBaseURL      string   `yaml:"public_base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		// origin al que la página de callback hace postMessage; "*" si vacío
		NotifyTargetOrigin string `yaml:"notify_target_origin"`
		ShutdownTimeout    string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	KV struct {
		// memory | redis | postgres
		Driver string `yaml:"driver"`
		Prefix string `yaml:"prefix"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
		} `yaml:"redis"`
		Postgres struct {
			DSN   string `yaml:"dsn"`
			Table string `yaml:"table"`
		} `yaml:"postgres"`
	} `yaml:"kv"`

	Identity struct {
		// gotrue | jwt
		Mode       string `yaml:"mode"`
		URL        string `yaml:"url"`
		AnonKey    string `yaml:"anon_key"`
		ServiceKey string `yaml:"service_key"`
		JWTSecret  string `yaml:"jwt_secret"`
		Audience   string `yaml:"audience"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"identity"`

	Security struct {
		// base64 o hex de 32 bytes; vacío = tokens en claro (solo dev)
		SecretboxMasterKey string `yaml:"secretbox_master_key"`
	} `yaml:"security"`

	OAuth struct {
		StateTTL string `yaml:"state_ttl"`
	} `yaml:"oauth"`

	Analytics struct {
		ProviderTimeout string `yaml:"provider_timeout"`
		Breaker         struct {
			FailureThreshold uint   `yaml:"failure_threshold"`
			FailureWindow    uint   `yaml:"failure_window"`
			Delay            string `yaml:"delay"`
		} `yaml:"breaker"`
	} `yaml:"analytics"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
	} `yaml:"rate"`

	Providers map[string]ProviderConfig `yaml:"providers"`
}

// Load lee el YAML (si existe), aplica defaults y overrides por env y valida.
// path vacío o archivo inexistente = solo defaults + env.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// sin archivo: seguimos con env
		default:
			return nil, err
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// sane defaults
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = "http://localhost" + c.Server.Addr
	}
	c.Server.PublicBaseURL = strings.TrimRight(c.Server.PublicBaseURL, "/")
	if c.Server.NotifyTargetOrigin == "" {
		c.Server.NotifyTargetOrigin = "*"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "15s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.KV.Driver == "" {
		c.KV.Driver = "memory"
	}
	c.KV.Driver = strings.ToLower(c.KV.Driver)
	if c.KV.Prefix == "" {
		c.KV.Prefix = "socialpulse:"
	}
	if c.KV.Postgres.Table == "" {
		c.KV.Postgres.Table = "kv_store"
	}

	if c.Identity.Mode == "" {
		// con secreto y sin URL validamos local
		if c.Identity.JWTSecret != "" && c.Identity.URL == "" {
			c.Identity.Mode = "jwt"
		} else {
			c.Identity.Mode = "gotrue"
		}
	}
	c.Identity.Mode = strings.ToLower(c.Identity.Mode)
	if c.Identity.Audience == "" {
		c.Identity.Audience = "authenticated"
	}
	if c.Identity.Timeout == "" {
		c.Identity.Timeout = "10s"
	}

	if c.OAuth.StateTTL == "" {
		c.OAuth.StateTTL = "10m"
	}
	if c.Analytics.ProviderTimeout == "" {
		c.Analytics.ProviderTimeout = "8s"
	}
	if c.Analytics.Breaker.FailureWindow == 0 {
		c.Analytics.Breaker.FailureWindow = 10
	}
	if c.Analytics.Breaker.FailureThreshold == 0 {
		c.Analytics.Breaker.FailureThreshold = 5
	}
	if c.Analytics.Breaker.Delay == "" {
		c.Analytics.Breaker.Delay = "15s"
	}

	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 30
	}

	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	for _, p := range providers.All() {
		pc := c.Providers[string(p)]
		if pc.RedirectURL == "" {
			pc.RedirectURL = c.Server.PublicBaseURL + "/oauth/" + string(p) + "/callback"
		}
		c.Providers[string(p)] = pc
	}
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// firstEnv devuelve la primera variable seteada de keys.
func firstEnv(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := getEnvStr(k); ok {
			return v, true
		}
	}
	return "", false
}

// providerEnv: nombres de env para client id/secret por proveedor.
// Instagram y Facebook comparten la app de Meta.
var providerEnv = map[providers.Provider]struct{ id, secret []string }{
	providers.Instagram: {
		id:     []string{"INSTAGRAM_CLIENT_ID", "FACEBOOK_APP_ID"},
		secret: []string{"INSTAGRAM_CLIENT_SECRET", "FACEBOOK_APP_SECRET"},
	},
	providers.Facebook: {
		id:     []string{"FACEBOOK_CLIENT_ID", "FACEBOOK_APP_ID"},
		secret: []string{"FACEBOOK_CLIENT_SECRET", "FACEBOOK_APP_SECRET"},
	},
	providers.Twitter: {
		id:     []string{"TWITTER_CLIENT_ID"},
		secret: []string{"TWITTER_CLIENT_SECRET"},
	},
	providers.LinkedIn: {
		id:     []string{"LINKEDIN_CLIENT_ID"},
		secret: []string{"LINKEDIN_CLIENT_SECRET"},
	},
	providers.TikTok: {
		id:     []string{"TIKTOK_CLIENT_KEY", "TIKTOK_CLIENT_ID"},
		secret: []string{"TIKTOK_CLIENT_SECRET"},
	},
}

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	} else if v, ok := getEnvStr("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := getEnvStr("PUBLIC_BASE_URL"); ok {
		c.Server.PublicBaseURL = v
	}
	if v, ok := getEnvCSV("CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("OAUTH_NOTIFY_ORIGIN"); ok {
		c.Server.NotifyTargetOrigin = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// KV
	if v, ok := getEnvStr("KV_DRIVER"); ok {
		c.KV.Driver = v
	}
	if v, ok := getEnvStr("KV_PREFIX"); ok {
		c.KV.Prefix = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.KV.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.KV.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.KV.Redis.Password = v
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.KV.Postgres.DSN = v
	}

	// IDENTITY (acepta los nombres de Supabase)
	if v, ok := getEnvStr("IDENTITY_MODE"); ok {
		c.Identity.Mode = v
	}
	if v, ok := firstEnv("IDENTITY_URL", "SUPABASE_URL"); ok {
		c.Identity.URL = v
	}
	if v, ok := firstEnv("IDENTITY_ANON_KEY", "SUPABASE_ANON_KEY"); ok {
		c.Identity.AnonKey = v
	}
	if v, ok := firstEnv("IDENTITY_SERVICE_KEY", "SUPABASE_SERVICE_ROLE_KEY"); ok {
		c.Identity.ServiceKey = v
	}
	if v, ok := firstEnv("IDENTITY_JWT_SECRET", "SUPABASE_JWT_SECRET"); ok {
		c.Identity.JWTSecret = v
	}

	// SECURITY
	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Security.SecretboxMasterKey = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}

	// PROVIDERS
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	for p, names := range providerEnv {
		pc := c.Providers[string(p)]
		if v, ok := firstEnv(names.id...); ok {
			pc.ClientID = v
		}
		if v, ok := firstEnv(names.secret...); ok {
			pc.ClientSecret = v
		}
		c.Providers[string(p)] = pc
	}
}

// Validate chequea valores críticos. Credenciales de proveedores faltantes
// no son error: ese proveedor queda sin configurar.
func (c *Config) Validate() error {
	var errs []error

	for name, s := range map[string]string{
		"server.shutdown_timeout":    c.Server.ShutdownTimeout,
		"identity.timeout":           c.Identity.Timeout,
		"oauth.state_ttl":            c.OAuth.StateTTL,
		"analytics.provider_timeout": c.Analytics.ProviderTimeout,
		"analytics.breaker.delay":    c.Analytics.Breaker.Delay,
		"rate.window":                c.Rate.Window,
	} {
		if d, err := time.ParseDuration(s); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, s))
		}
	}

	switch c.KV.Driver {
	case "memory":
	case "redis":
		if c.KV.Redis.Addr == "" {
			errs = append(errs, errors.New("kv.redis.addr is required for driver redis"))
		}
	case "postgres", "pg":
		if c.KV.Postgres.DSN == "" {
			errs = append(errs, errors.New("kv.postgres.dsn is required for driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("kv.driver: unknown %q", c.KV.Driver))
	}

	switch c.Identity.Mode {
	case "gotrue":
		if c.Identity.URL == "" {
			errs = append(errs, errors.New("identity.url is required for mode gotrue"))
		}
	case "jwt":
		if c.Identity.JWTSecret == "" {
			errs = append(errs, errors.New("identity.jwt_secret is required for mode jwt"))
		}
	default:
		errs = append(errs, fmt.Errorf("identity.mode: unknown %q", c.Identity.Mode))
	}

	if k := c.Security.SecretboxMasterKey; k != "" {
		if _, err := secretbox.ParseKey(k); err != nil {
			errs = append(errs, fmt.Errorf("security.secretbox_master_key: %w", err))
		}
	} else if c.IsProd() {
		errs = append(errs, errors.New("security.secretbox_master_key is required in prod"))
	}

	if c.Rate.MaxRequests < 0 {
		errs = append(errs, errors.New("rate.max_requests must be >= 0"))
	}
	if c.Analytics.Breaker.FailureThreshold > c.Analytics.Breaker.FailureWindow {
		errs = append(errs, errors.New("analytics.breaker.failure_threshold must be <= failure_window"))
	}

	for name, pc := range c.Providers {
		if _, err := providers.Parse(name); err != nil {
			errs = append(errs, fmt.Errorf("providers.%s: unknown provider", name))
			continue
		}
		if err := validation.Scopes(pc.Scopes); err != nil {
			errs = append(errs, fmt.Errorf("providers.%s.scopes: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// IsProd reporta si app.env es prod.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

// ProviderConfig arma el providers.Config de p.
func (c *Config) ProviderConfig(p providers.Provider) providers.Config {
	pc := c.Providers[string(p)]
	return providers.Config{
		ClientID:     pc.ClientID,
		ClientSecret: pc.ClientSecret,
		RedirectURL:  pc.RedirectURL,
		Scopes:       pc.Scopes,
		AuthURL:      pc.AuthURL,
		TokenURL:     pc.TokenURL,
		APIBaseURL:   pc.APIBaseURL,
	}
}

// dur parsea s; Validate ya garantizó el formato.
func dur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func (c *Config) ShutdownTimeout() time.Duration {
	return dur(c.Server.ShutdownTimeout)
}

func (c *Config) IdentityTimeout() time.Duration {
	return dur(c.Identity.Timeout)
}

// StateTTL es la vida del state OAuth entre initiate y callback.
func (c *Config) StateTTL() time.Duration {
	return dur(c.OAuth.StateTTL)
}

func (c *Config) ProviderTimeout() time.Duration {
	return dur(c.Analytics.ProviderTimeout)
}

func (c *Config) BreakerDelay() time.Duration {
	return dur(c.Analytics.Breaker.Delay)
}

func (c *Config) RateWindow() time.Duration {
	return dur(c.Rate.Window)
}
