// Package oauth contiene el controller HTTP del token endpoint.
package oauth

import (
	"errors"
	"net/http"
	"time"

	dto "github.com/dropDatabas3/passgrant/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/passgrant/internal/http/errors"
	mw "github.com/dropDatabas3/passgrant/internal/http/middlewares"
	"github.com/dropDatabas3/passgrant/internal/metrics"
	"github.com/dropDatabas3/passgrant/internal/oauth"
	"github.com/dropDatabas3/passgrant/internal/observability/logger"
)

const maxTokenBody = 64 << 10

// TokenController handles POST /oauth/token.
type TokenController struct {
	engine  *oauth.Engine
	metrics *metrics.Metrics
}

func NewTokenController(engine *oauth.Engine, m *metrics.Metrics) *TokenController {
	return &TokenController{engine: engine, metrics: m}
}

// Token adapts the HTTP request to the grant engine. Method and content-type
// validation belong to the engine, so every method is routed here.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.token"))
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxTokenBody)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httperrors.WriteOAuthError(w, &oauth.Error{Kind: oauth.KindInvalidRequest, Description: "Invalid request: body too large"})
			return
		}
		log.Debug("failed to parse form", logger.Err(err))
		httperrors.WriteOAuthError(w, &oauth.Error{Kind: oauth.KindInvalidRequest, Description: "Invalid request: malformed form body"})
		return
	}

	grantType := grantLabel(r.PostForm.Get("grant_type"))
	log = log.With(logger.GrantType(grantType))

	rec, err := c.engine.Token(ctx, &oauth.Request{
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
		Form:        r.PostForm,
		Header:      r.Header,
		IP:          mw.ClientIP(r),
		UserAgent:   r.UserAgent(),
	}, oauth.TokenOptions{})
	if err != nil {
		outcome := "server_error"
		if oe, ok := oauth.AsError(err); ok {
			outcome = oe.Kind.Code()
			log.Info("token request rejected", logger.ErrorCode(outcome))
		} else {
			log.Error("token endpoint error", logger.Err(err))
		}
		c.metrics.ObserveGrant(grantType, outcome, time.Since(start))
		httperrors.WriteOAuthError(w, err)
		return
	}
	c.metrics.ObserveGrant(grantType, "issued", time.Since(start))

	resp := dto.TokenResponse{
		AccessToken:  rec.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    seconds(rec.AccessTokenExpiresAt.Sub(rec.CreatedAt)),
		RefreshToken: rec.RefreshToken,
	}
	if rec.RefreshTokenExpiresAt != nil {
		n := seconds(rec.RefreshTokenExpiresAt.Sub(rec.CreatedAt))
		resp.RefreshTokenExpiresIn = &n
	}
	httperrors.WriteOAuthJSON(w, http.StatusOK, resp)
}

// grantLabel keeps the metrics label set bounded.
func grantLabel(gt string) string {
	switch gt {
	case "password", "refresh_token", "":
		return gt
	default:
		return "other"
	}
}

func seconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
