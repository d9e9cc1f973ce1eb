// Package server arma el handler HTTP completo a partir de la config.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialpulse/internal/config"
	accountctrl "github.com/dropDatabas3/socialpulse/internal/http/controllers/account"
	analyticsctrl "github.com/dropDatabas3/socialpulse/internal/http/controllers/analytics"
	healthctrl "github.com/dropDatabas3/socialpulse/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/socialpulse/internal/http/controllers/oauth"
	"github.com/dropDatabas3/socialpulse/internal/http/router"
	accountsvc "github.com/dropDatabas3/socialpulse/internal/http/services/account"
	analyticssvc "github.com/dropDatabas3/socialpulse/internal/http/services/analytics"
	healthsvc "github.com/dropDatabas3/socialpulse/internal/http/services/health"
	oauthsvc "github.com/dropDatabas3/socialpulse/internal/http/services/oauth"
	"github.com/dropDatabas3/socialpulse/internal/identity"
	"github.com/dropDatabas3/socialpulse/internal/kv"
	"github.com/dropDatabas3/socialpulse/internal/metrics"
	"github.com/dropDatabas3/socialpulse/internal/notify"
	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/providers/facebook"
	"github.com/dropDatabas3/socialpulse/internal/providers/httpx"
	"github.com/dropDatabas3/socialpulse/internal/providers/instagram"
	"github.com/dropDatabas3/socialpulse/internal/providers/linkedin"
	"github.com/dropDatabas3/socialpulse/internal/providers/tiktok"
	"github.com/dropDatabas3/socialpulse/internal/providers/twitter"
	"github.com/dropDatabas3/socialpulse/internal/rate"
	"github.com/dropDatabas3/socialpulse/internal/repository"
	"github.com/dropDatabas3/socialpulse/internal/security/secretbox"
)

// Options extra para Build. Los valores cero usan los defaults de producción.
type Options struct {
	Version  string
	Registry prometheus.Registerer // default: prometheus.DefaultRegisterer
}

// factories: un adapter por proveedor.
var factories = map[providers.Provider]func(httpx.Options) providers.Factory{
	providers.Instagram: instagram.Factory,
	providers.Facebook:  facebook.Factory,
	providers.Twitter:   twitter.Factory,
	providers.LinkedIn:  linkedin.Factory,
	providers.TikTok:    tiktok.Factory,
}

// Build instancia todas las dependencias y devuelve el handler raíz
// junto con una función de cleanup.
func Build(ctx context.Context, cfg *config.Config, opts Options) (http.Handler, func() error, error) {
	log := logger.From(ctx).With(logger.Layer("server"), logger.Op("Build"))

	// 1. KV
	store, err := kv.New(ctx, kv.Config{
		Driver:        cfg.KV.Driver,
		Prefix:        cfg.KV.Prefix,
		RedisAddr:     cfg.KV.Redis.Addr,
		RedisPassword: cfg.KV.Redis.Password,
		RedisDB:       cfg.KV.Redis.DB,
		PostgresDSN:   cfg.KV.Postgres.DSN,
		PostgresTable: cfg.KV.Postgres.Table,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kv init: %w", err)
	}
	cleanup := store.Close

	// 2. Repository (tokens cifrados si hay clave)
	var box *secretbox.Box
	if k := cfg.Security.SecretboxMasterKey; k != "" {
		if box, err = secretbox.New(k); err != nil {
			_ = cleanup()
			return nil, nil, fmt.Errorf("secretbox: %w", err)
		}
	} else {
		log.Warn("SECRETBOX_MASTER_KEY vacío: tokens OAuth se guardan sin cifrar")
	}
	repo := repository.New(store, box)

	// 3. Identity
	verifier, admin, err := buildIdentity(cfg)
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	gate := identity.NewGate(verifier)

	// 4. Providers
	reg, err := buildRegistry(cfg)
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	configured := reg.Configured()
	names := make([]string, 0, len(configured))
	for _, p := range configured {
		names = append(names, string(p))
	}
	log.Info("providers registrados", zap.Strings("configured", names))

	// 5. Rate limit (comparte el redis del KV si existe)
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		var raw *rdb.Client
		if r, ok := store.(interface{ Raw() *rdb.Client }); ok {
			raw = r.Raw()
		}
		limiter = rate.New(rate.Config{
			Max:    cfg.Rate.MaxRequests,
			Window: cfg.RateWindow(),
			Prefix: cfg.KV.Prefix + "rl:",
		}, raw)
	}

	// 6. Metrics (antes del router: WithMetrics lee el registro)
	promReg := opts.Registry
	if promReg == nil {
		promReg = prometheus.DefaultRegisterer
	}
	metricsHandler, err := metrics.Register(promReg)
	if err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}

	// 7. Services + controllers
	oauthServices := oauthsvc.NewServices(oauthsvc.Deps{
		Store:    repo,
		Adapters: reg,
		StateTTL: cfg.StateTTL(),
	})
	analyticsServices := analyticssvc.NewServices(analyticssvc.Deps{
		Credentials:     repo,
		Adapters:        reg,
		ProviderTimeout: cfg.ProviderTimeout(),
	})
	accountServices := accountsvc.NewServices(accountsvc.Deps{
		Store:    repo,
		Identity: admin,
	})
	healthServices := healthsvc.NewServices(healthsvc.Deps{
		KV:        store,
		Providers: reg,
		Version:   opts.Version,
	})

	h := router.New(router.Deps{
		OAuth:       oauthctrl.NewControllers(oauthServices, notify.NewRenderer(cfg.Server.NotifyTargetOrigin)),
		Analytics:   analyticsctrl.NewControllers(analyticsServices),
		Account:     accountctrl.NewControllers(accountServices),
		Health:      healthctrl.NewControllers(healthServices),
		Gate:        gate,
		RateLimiter: limiter,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		Metrics:     metricsHandler,
	})
	return h, cleanup, nil
}

// buildIdentity elige el verificador según identity.mode. El admin API
// solo existe si hay URL del identity service.
func buildIdentity(cfg *config.Config) (identity.Verifier, identity.Admin, error) {
	var admin identity.Admin = identity.DisabledAdmin{}
	var gt *identity.GoTrue
	if cfg.Identity.URL != "" {
		gt = identity.NewGoTrue(identity.GoTrueConfig{
			URL:        cfg.Identity.URL,
			AnonKey:    cfg.Identity.AnonKey,
			ServiceKey: cfg.Identity.ServiceKey,
			Timeout:    cfg.IdentityTimeout(),
		})
		admin = gt
	}

	switch cfg.Identity.Mode {
	case "jwt":
		v, err := identity.NewJWTVerifier(cfg.Identity.JWTSecret, cfg.Identity.Audience)
		if err != nil {
			return nil, nil, fmt.Errorf("identity jwt: %w", err)
		}
		return v, admin, nil
	case "gotrue":
		if gt == nil {
			return nil, nil, fmt.Errorf("identity: url requerida en modo gotrue")
		}
		return gt, admin, nil
	default:
		return nil, nil, fmt.Errorf("identity: modo desconocido %q", cfg.Identity.Mode)
	}
}

// buildRegistry registra los cinco adapters; los que no tienen credenciales
// quedan registrados como no configurados.
func buildRegistry(cfg *config.Config) (*providers.Registry, error) {
	hopts := httpx.Options{
		FailureThreshold: cfg.Analytics.Breaker.FailureThreshold,
		FailureWindow:    cfg.Analytics.Breaker.FailureWindow,
		Delay:            cfg.BreakerDelay(),
	}
	reg := providers.NewRegistry()
	for _, p := range providers.All() {
		if err := reg.Register(p, factories[p](hopts), cfg.ProviderConfig(p)); err != nil {
			return nil, fmt.Errorf("provider %s: %w", p, err)
		}
	}
	return reg, nil
}
