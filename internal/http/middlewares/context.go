package middlewares

import (
	"context"

	"github.com/dropDatabas3/socialpulse/internal/identity"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	ctxIdentityKey  ctxKey = "identity"
	ctxRequestIDKey ctxKey = "request_id"
)

// =================================================================================
// SETTERS
// =================================================================================

// WithIdentity inyecta el usuario autenticado en el contexto.
func WithIdentity(ctx context.Context, u *identity.UserIdentity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, u)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// =================================================================================
// GETTERS
// =================================================================================

// GetIdentity obtiene el usuario autenticado.
// Retorna nil si la ruta no pasó por RequireIdentity.
func GetIdentity(ctx context.Context) *identity.UserIdentity {
	if v, ok := ctx.Value(ctxIdentityKey).(*identity.UserIdentity); ok {
		return v
	}
	return nil
}

// GetUserID obtiene el id del usuario autenticado o "".
func GetUserID(ctx context.Context) string {
	if u := GetIdentity(ctx); u != nil {
		return u.ID
	}
	return ""
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}
