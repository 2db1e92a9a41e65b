package oauth

import (
	"context"
	"errors"

	"github.com/dropDatabas3/passgrant/internal/audit"
	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/observability/logger"
	"github.com/dropDatabas3/passgrant/internal/util"
)

func (e *Engine) passwordGrant(ctx context.Context, req *Request, client *repository.Client, opts TokenOptions) (*repository.TokenRecord, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.token.password"), logger.ClientID(client.ID))

	params := PasswordParams{
		Username: req.formValue("username"),
		Password: req.formValue("password"),
		Bypass:   opts.Bypass,
	}
	if e.filter != nil {
		filtered, err := e.filter(ctx, params)
		if err != nil {
			return nil, err
		}
		params = filtered
	}

	if req.formValue("username") == "" {
		return nil, newError(KindInvalidRequest, "Missing parameter: `username`")
	}
	if params.Bypass == nil && req.formValue("password") == "" {
		return nil, newError(KindInvalidRequest, "Missing parameter: `password`")
	}
	if params.Bypass == nil && e.cfg.MaxPasswordLength > 0 && len(params.Password) > e.cfg.MaxPasswordLength {
		return nil, newError(KindTooLongPassword, "Cannot authenticate user with a password that is too long")
	}

	user, err := e.users.VerifyCredentials(ctx, params.Username, params.Password, params.Bypass)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, storeFailure("verify credentials", err)
		}
		return nil, refused(ctx, req, client, params.Username, e.rejectUnknownCredentials(ctx, params.Username))
	}
	log = log.With(logger.UserID(user.ID))

	if user.Blocked {
		log.Info("login refused: account blocked")
		return nil, refused(ctx, req, client, params.Username, newError(KindAccountBlocked, "User is blocked."))
	}
	if e.cfg.RequireEmailVerification && !user.EmailVerified {
		log.Info("login refused: email not verified")
		return nil, refused(ctx, req, client, params.Username, newError(KindEmailNotVerified, "User email is not verified."))
	}

	if user.HasTwoFactor() {
		code := req.header(e.cfg.OTPHeader)
		if code == "" {
			return nil, newError(KindMissingTwoFactor, "Missing two factor header")
		}
		if e.twoFactor == nil {
			return nil, storeFailure("verify two factor", errors.New("no two factor verifier configured"))
		}
		ok, err := e.twoFactor.Verify(ctx, user.OTPSecret, code)
		if err != nil {
			return nil, storeFailure("verify two factor", err)
		}
		if !ok {
			log.Info("login refused: invalid two factor code")
			return nil, refused(ctx, req, client, params.Username, newError(KindInvalidTwoFactor, "Invalid two factor header"))
		}
	}

	now := e.now()
	rec, err := e.builder.Build(freshMetadata(req.UserAgent, req.IP, now), now)
	if err != nil {
		return nil, err
	}
	rec.ClientID = client.ID
	rec.UserID = user.ID
	if params.Bypass != nil {
		rec.AuthName = params.Bypass.AuthName
	}

	saved, err := e.tokens.Save(ctx, rec)
	if err != nil {
		return nil, storeFailure("save token", err)
	}
	log.Debug("password grant issued tokens", logger.AuthName(saved.AuthName))
	audit.Log(ctx, audit.TokenIssued,
		logger.ClientID(client.ID), logger.UserID(saved.UserID), logger.AuthName(saved.AuthName),
		logger.ClientIP(req.IP), logger.Bool("bypass", params.Bypass != nil))
	return saved, nil
}

// refused records a rejected login in the audit trail and returns err.
// Store failures are not logins refused and pass through untouched.
func refused(ctx context.Context, req *Request, client *repository.Client, identifier string, err error) error {
	if oe, ok := AsError(err); ok {
		audit.Log(ctx, audit.LoginRefused,
			logger.ClientID(client.ID), logger.String("identifier", util.MaskIdentifier(identifier)),
			logger.ClientIP(req.IP), logger.ErrorCode(oe.Kind.Code()))
	}
	return err
}

// rejectUnknownCredentials decides between the registration-state errors and
// the generic invalid_grant. Registration errors are only raised when exactly
// one request matches the identifier.
func (e *Engine) rejectUnknownCredentials(ctx context.Context, identifier string) error {
	regs, err := e.registrations.FindByIdentifier(ctx, identifier)
	if err != nil {
		return storeFailure("find registrations", err)
	}
	if len(regs) == 1 {
		switch regs[0].State {
		case repository.RegistrationRejected:
			return newError(KindRegistrationApprovalRejected, "Your registration request was rejected by the administrator.")
		case repository.RegistrationPending:
			return newError(KindRegistrationWaitingForApproval, "Your registration request is still waiting for approval by the administrator.")
		}
	}
	return newError(KindInvalidGrant, "Invalid grant: user credentials are invalid")
}
