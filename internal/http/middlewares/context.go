package middlewares

import "context"

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxClientIP
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestID, rid)
}

// GetRequestID devuelve el request id puesto por WithRequestID.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func setClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIP, ip)
}

// GetClientIP devuelve la IP resuelta por WithClientIP.
func GetClientIP(ctx context.Context) string {
	v, _ := ctx.Value(ctxClientIP).(string)
	return v
}
