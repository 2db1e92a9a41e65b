package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/passgrant/internal/http/errors"
	"github.com/dropDatabas3/passgrant/internal/oauth"
	"github.com/dropDatabas3/passgrant/internal/observability/logger"
)

// RequireBearer valida Authorization: Bearer <access_token> contra el token
// store y guarda la identidad en el contexto. Sin token válido responde 401.
func RequireBearer(auth *oauth.Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				if !oauth.IsProtocolError(err) {
					logger.From(r.Context()).Error("bearer validation failed", logger.Layer("middleware"), logger.Err(err))
				}
				errors.WriteOAuthError(w, err)
				return
			}

			ctx := oauth.WithIdentity(r.Context(), id)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(id.UserID), logger.ClientID(id.ClientID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
