// Package audit registra eventos de seguridad del ciclo de vida de tokens
// en un logger "audit", separado del log de la aplicación para poder
// enrutarlo a otro sink.
package audit

import (
	"context"

	"github.com/dropDatabas3/passgrant/internal/observability/logger"
)

type Event string

const (
	TokenIssued    Event = "token.issued"
	TokenRefreshed Event = "token.refreshed"
	// RefreshReplay: un refresh token ya revocado se volvió a presentar.
	RefreshReplay Event = "token.refresh_replay"
	LoginRefused  Event = "login.refused"
)

// Log escribe ev con los campos dados. Nunca recibe tokens en claro.
func Log(ctx context.Context, ev Event, fields ...logger.Field) {
	all := make([]logger.Field, 0, len(fields)+1)
	all = append(all, logger.String("event", string(ev)))
	all = append(all, fields...)
	logger.From(ctx).Named("audit").Info(string(ev), all...)
}
