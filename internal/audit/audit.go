// Package audit registra eventos de cuenta (conexiones OAuth, altas y bajas)
// en un logger dedicado, separado del access log.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
)

// Eventos conocidos.
const (
	EventProviderConnected    = "provider.connected"
	EventProviderDisconnected = "provider.disconnected"
	EventAccountCreated       = "account.created"
	EventAccountDeleted       = "account.deleted"
	EventPasswordChanged      = "account.password_changed"
	EventProfileUpdated       = "account.profile_updated"
)

// Log escribe un evento de auditoría con el logger del contexto
// (request_id y user_id incluidos si el middleware los agregó).
func Log(ctx context.Context, event, userID string, fields ...zap.Field) {
	base := []zap.Field{zap.String("event", event)}
	if userID != "" {
		base = append(base, logger.UserID(userID))
	}
	logger.From(ctx).Named("audit").Info("audit", append(base, fields...)...)
}
