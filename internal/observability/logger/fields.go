package logger

import "go.uber.org/zap"

// =================================================================================
// HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

// DurationMs es lo que usa el access log.
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

func Bytes(v int) zap.Field { return zap.Int("bytes", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// =================================================================================
// DOMINIO
// =================================================================================

// UserID es el id del usuario autenticado por el identity gate.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Provider identifica la red social (instagram, facebook, twitter, linkedin, tiktok).
func Provider(v string) zap.Field { return zap.String("provider", v) }

// Outcome resume el resultado de una llamada a un proveedor
// (ok, rejected, unreachable, not_connected).
func Outcome(v string) zap.Field { return zap.String("outcome", v) }

// Email: pasar siempre enmascarado (util.MaskEmail).
func Email(v string) zap.Field { return zap.String("email", v) }

// TokenLen loguea el largo de un token en vez del token.
func TokenLen(name, token string) zap.Field { return zap.Int(name+"_len", len(token)) }

// =================================================================================
// SISTEMA
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

// Layer: controller, service, adapter, store.
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Count(v int) zap.Field { return zap.Int("count", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
