// Package logger provides the process-wide zap logger and its request scoping.
//
// Un único logger global se inicializa con Init() en el comando serve. El
// middleware de logging inyecta en cada request una copia con request_id y,
// una vez autenticado, user_id. Services y adapters lo recuperan con From(ctx).
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.callback"))
//	log.Info("account connected", logger.Provider("twitter"))
//
// Nunca se loguean access tokens, refresh tokens ni client secrets: como mucho
// su longitud.
package logger
