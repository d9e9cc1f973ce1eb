// Package router arma el árbol de rutas chi y las cadenas de middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	accountctrl "github.com/dropDatabas3/socialpulse/internal/http/controllers/account"
	analyticsctrl "github.com/dropDatabas3/socialpulse/internal/http/controllers/analytics"
	healthctrl "github.com/dropDatabas3/socialpulse/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/socialpulse/internal/http/controllers/oauth"
	httperrors "github.com/dropDatabas3/socialpulse/internal/http/errors"
	mw "github.com/dropDatabas3/socialpulse/internal/http/middlewares"
	"github.com/dropDatabas3/socialpulse/internal/metrics"
	"github.com/dropDatabas3/socialpulse/internal/rate"
)

// Deps contiene lo necesario para montar las rutas.
type Deps struct {
	OAuth     *oauthctrl.Controllers
	Analytics *analyticsctrl.Controllers
	Account   *accountctrl.Controllers
	Health    *healthctrl.Controllers

	Gate        mw.Authenticator
	RateLimiter rate.Limiter // opcional: signup y endpoints OAuth
	CORSOrigins []string
	Metrics     http.Handler // opcional: /metrics
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global: el primero es el más externo.
	r.Use(mw.Stack(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
	))
	r.Use(metrics.WithMetrics)
	r.Use(mw.Stack(
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed."))
	})

	registerPublicRoutes(r, d)
	registerProtectedRoutes(r, d)
	return r
}

func registerPublicRoutes(r chi.Router, d Deps) {
	h := d.Health.Health
	r.Get("/health", h.Live)
	r.Get("/readyz", h.Ready)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Get("/oauth/opener.js", d.OAuth.Broker.OpenerScript)

	// El callback nunca responde JSON: al rechazar también renderiza la página.
	r.With(mw.Stack(
		mw.WithNoStore(),
		mw.WithRateLimitHandler(d.RateLimiter, mw.IPPathRateKey, d.OAuth.Broker.Throttled),
	)).Get("/oauth/{provider}/callback", d.OAuth.Broker.Callback)
	r.With(mw.Stack(
		mw.WithNoStore(),
		mw.WithRateLimit(d.RateLimiter, mw.IPPathRateKey),
	)).Post("/signup", d.Account.Account.Signup)
}

func registerProtectedRoutes(r chi.Router, d Deps) {
	r.Group(func(r chi.Router) {
		r.Use(mw.Stack(
			mw.WithNoStore(),
			mw.RequireIdentity(d.Gate),
		))

		// OAuth
		o := d.OAuth.Broker
		r.Get("/oauth/status", o.Status)
		r.With(mw.Stack(mw.WithRateLimit(d.RateLimiter, mw.UserRateKey))).
			Get("/oauth/{provider}/initiate", o.Initiate)
		r.Post("/oauth/disconnect", o.Disconnect)

		// Analytics
		a := d.Analytics.Analytics
		r.Get("/analytics/all", a.All)
		r.Get("/analytics/{provider}", a.Provider)

		// Account
		acc := d.Account.Account
		r.Get("/connected-accounts", acc.ConnectedAccounts)
		r.Post("/connect-account", acc.ConnectAccount)
		r.Get("/profile", acc.Profile)
		r.Post("/update-profile", acc.UpdateProfile)
		r.Post("/change-password", acc.ChangePassword)
		r.Delete("/delete-account", acc.DeleteAccount)
	})
}
