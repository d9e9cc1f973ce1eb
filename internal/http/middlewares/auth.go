package middlewares

import (
	"context"
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/socialpulse/internal/http/errors"
	"github.com/dropDatabas3/socialpulse/internal/identity"
	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
)

// Authenticator es lo que RequireIdentity necesita del identity gate.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*identity.UserIdentity, error)
}

// RequireIdentity valida el bearer token en cada request (sin cache) y
// deja el UserIdentity en el contexto. Cualquier fallo es 401.
func RequireIdentity(gate Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			u, err := gate.Authenticate(ctx, r.Header.Get("Authorization"))
			if err != nil {
				log := logger.From(ctx).With(logger.Layer("middleware"), logger.Op("RequireIdentity"))
				switch {
				case errors.Is(err, identity.ErrMissingToken):
					httperrors.WriteError(w, httperrors.ErrTokenMissing)
				case errors.Is(err, identity.ErrServiceUnavailable):
					log.Warn("identity service unavailable", logger.Err(err))
					httperrors.WriteError(w, httperrors.ErrIdentityUnavailable.WithCause(err))
				default:
					log.Debug("token rejected", logger.Err(err))
					httperrors.WriteError(w, httperrors.ErrTokenInvalid.WithCause(err))
				}
				return
			}

			ctx = WithIdentity(ctx, u)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(u.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
