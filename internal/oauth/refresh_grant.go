package oauth

import (
	"context"
	"errors"

	"github.com/dropDatabas3/passgrant/internal/audit"
	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/observability/logger"
)

func (e *Engine) refreshGrant(ctx context.Context, req *Request, client *repository.Client, opts TokenOptions) (*repository.TokenRecord, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.token.refresh"), logger.ClientID(client.ID))

	refreshToken := req.formValue("refresh_token")
	if refreshToken == "" {
		return nil, newError(KindInvalidRequest, "Missing parameter: `refresh_token`")
	}

	old, err := e.tokens.GetByRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindInvalidGrant, "Invalid grant: refresh token is invalid")
		}
		return nil, storeFailure("get refresh token", err)
	}
	if old.ClientID != client.ID {
		log.Warn("refresh token presented by another client", logger.String("owner_client_id", old.ClientID))
		return nil, newError(KindInvalidGrant, "Invalid grant: refresh token client is invalid")
	}

	now := e.now()
	if old.RefreshExpired(now) {
		return nil, newError(KindInvalidGrant, "Invalid grant: refresh token has expired")
	}

	// Revoke before minting: only the caller that flips the record wins.
	revoked, err := e.tokens.Revoke(ctx, refreshToken)
	if err != nil {
		return nil, storeFailure("revoke token", err)
	}
	if !revoked {
		log.Warn("refresh token already revoked (concurrent or replayed use)", logger.UserID(old.UserID))
		audit.Log(ctx, audit.RefreshReplay, logger.ClientID(client.ID), logger.UserID(old.UserID), logger.ClientIP(req.IP))
		return nil, newError(KindInvalidGrant, "Invalid grant: refresh token is invalid")
	}

	md := Metadata{
		LoginDevice:        old.LoginDevice,
		LoginIP:            old.LoginIP,
		LoginDate:          old.LoginDate,
		LastActivityDevice: req.UserAgent,
		LastActivityIP:     req.IP,
		LastActivityDate:   now,
	}
	rec, err := e.builder.Build(md, now)
	if err != nil {
		return nil, err
	}
	rec.ClientID = client.ID
	rec.UserID = old.UserID
	rec.AuthName = old.AuthName
	if opts.RefreshTokenAuthName != "" {
		rec.AuthName = opts.RefreshTokenAuthName
	}

	saved, err := e.tokens.Save(ctx, rec)
	if err != nil {
		return nil, storeFailure("save token", err)
	}
	log.Debug("refresh grant rotated tokens", logger.UserID(saved.UserID))
	audit.Log(ctx, audit.TokenRefreshed,
		logger.ClientID(client.ID), logger.UserID(saved.UserID), logger.AuthName(saved.AuthName), logger.ClientIP(req.IP))
	return saved, nil
}
