package middlewares

import (
	"net/http"
	"strconv"
	"time"

	httperrors "github.com/dropDatabas3/socialpulse/internal/http/errors"
	"github.com/dropDatabas3/socialpulse/internal/http/helpers"
	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
	"github.com/dropDatabas3/socialpulse/internal/rate"
)

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPPathRateKey: ip|path.
func IPPathRateKey(r *http.Request) string {
	return helpers.ClientIP(r) + "|" + r.URL.Path
}

// UserRateKey usa el usuario autenticado si existe, si no la IP.
func UserRateKey(r *http.Request) string {
	if id := GetUserID(r.Context()); id != "" {
		return "u:" + id + "|" + r.URL.Path
	}
	return IPPathRateKey(r)
}

// WithRateLimit aplica el limiter y responde 429 JSON al rechazar.
// Si es nil no hace nada; si el limiter falla se deja pasar el request.
func WithRateLimit(limiter rate.Limiter, keyFn RateKeyFunc) Middleware {
	return WithRateLimitHandler(limiter, keyFn, func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
	})
}

// WithRateLimitHandler es WithRateLimit con la respuesta de rechazo a cargo
// de onLimited. Retry-After ya viene seteado cuando se invoca.
func WithRateLimitHandler(limiter rate.Limiter, keyFn RateKeyFunc, onLimited http.HandlerFunc) Middleware {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if keyFn == nil {
		keyFn = IPPathRateKey
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), keyFn(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limit error", logger.Op("WithRateLimit"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				onLimited(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))

			next.ServeHTTP(w, r)
		})
	}
}
