package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field permite armar listas de campos sin importar zap.
type Field = zap.Field

// --- HTTP ---

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// Duration en milisegundos (float) para que sea agregable en prod.
func Duration(v time.Duration) zap.Field {
	return zap.Float64("duration_ms", float64(v.Microseconds())/1000)
}

// --- OAuth ---

// ClientID del cliente OAuth (no confundir con ClientIP).
func ClientID(v string) zap.Field  { return zap.String("client_id", v) }
func UserID(v string) zap.Field    { return zap.String("user_id", v) }
func GrantType(v string) zap.Field { return zap.String("grant_type", v) }
func AuthName(v string) zap.Field  { return zap.String("auth_name", v) }

// ErrorCode es el código de protocolo devuelto al cliente (invalid_grant, ...).
func ErrorCode(v string) zap.Field { return zap.String("error_code", v) }

// --- Sistema ---

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }

// Layer: handler, service, repository.
func Layer(v string) zap.Field { return zap.String("layer", v) }
func Err(err error) zap.Field  { return zap.Error(err) }

// --- Genéricos ---

func Count(v int) zap.Field              { return zap.Int("count", v) }
func String(key, v string) zap.Field     { return zap.String(key, v) }
func Int(key string, v int) zap.Field    { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field  { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field    { return zap.Any(key, v) }
