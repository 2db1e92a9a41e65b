package oauth

import (
	"errors"
	"net/http"
)

// Kind identifies a protocol-level failure. Each kind maps to exactly one
// wire code and HTTP status.
type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindInvalidClient
	KindUnsupportedGrantType
	KindUnauthorizedClient
	KindInvalidGrant
	KindMissingTwoFactor
	KindInvalidTwoFactor
	KindRegistrationWaitingForApproval
	KindRegistrationApprovalRejected
	KindAccountBlocked
	KindEmailNotVerified
	KindTooLongPassword
	KindInvalidToken
)

var kinds = map[Kind]struct {
	code   string
	status int
}{
	KindInvalidRequest:                 {"invalid_request", http.StatusBadRequest},
	KindInvalidClient:                  {"invalid_client", http.StatusBadRequest},
	KindUnsupportedGrantType:           {"unsupported_grant_type", http.StatusBadRequest},
	KindUnauthorizedClient:             {"unauthorized_client", http.StatusBadRequest},
	KindInvalidGrant:                   {"invalid_grant", http.StatusBadRequest},
	KindMissingTwoFactor:               {"missing_two_factor", http.StatusUnauthorized},
	KindInvalidTwoFactor:               {"invalid_two_factor", http.StatusUnauthorized},
	KindRegistrationWaitingForApproval: {"account_waiting_for_approval", http.StatusBadRequest},
	KindRegistrationApprovalRejected:   {"account_approval_rejected", http.StatusBadRequest},
	KindAccountBlocked:                 {"account_blocked", http.StatusBadRequest},
	KindEmailNotVerified:               {"email_not_verified", http.StatusBadRequest},
	KindTooLongPassword:                {"too_long_password", http.StatusBadRequest},
	KindInvalidToken:                   {"invalid_token", http.StatusUnauthorized},
}

// Code returns the wire error code.
func (k Kind) Code() string {
	if v, ok := kinds[k]; ok {
		return v.code
	}
	return "server_error"
}

// Status returns the HTTP status for the kind.
func (k Kind) Status() int {
	if v, ok := kinds[k]; ok {
		return v.status
	}
	return http.StatusInternalServerError
}

func (k Kind) String() string { return k.Code() }

// Error is a terminal protocol error. Anything returned by the engine that is
// not an *Error is an internal failure (store unavailable, timeout, ...).
type Error struct {
	Kind        Kind
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Kind.Code()
	}
	return e.Kind.Code() + ": " + e.Description
}

// Is matches on Kind so callers can write errors.Is(err, oauth.ErrInvalidGrant).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(k Kind, desc string) *Error { return &Error{Kind: k, Description: desc} }

// Sentinels for errors.Is comparisons; descriptions on returned errors vary.
var (
	ErrInvalidRequest                 = &Error{Kind: KindInvalidRequest}
	ErrInvalidClient                  = &Error{Kind: KindInvalidClient}
	ErrUnsupportedGrantType           = &Error{Kind: KindUnsupportedGrantType}
	ErrUnauthorizedClient             = &Error{Kind: KindUnauthorizedClient}
	ErrInvalidGrant                   = &Error{Kind: KindInvalidGrant}
	ErrMissingTwoFactor               = &Error{Kind: KindMissingTwoFactor}
	ErrInvalidTwoFactor               = &Error{Kind: KindInvalidTwoFactor}
	ErrRegistrationWaitingForApproval = &Error{Kind: KindRegistrationWaitingForApproval}
	ErrRegistrationApprovalRejected   = &Error{Kind: KindRegistrationApprovalRejected}
	ErrAccountBlocked                 = &Error{Kind: KindAccountBlocked}
	ErrEmailNotVerified               = &Error{Kind: KindEmailNotVerified}
	ErrTooLongPassword                = &Error{Kind: KindTooLongPassword}
	ErrInvalidToken                   = &Error{Kind: KindInvalidToken}
)

// AsError extracts the protocol error from err, if any.
func AsError(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// IsProtocolError reports whether err is a client-facing protocol error as
// opposed to an internal failure.
func IsProtocolError(err error) bool {
	_, ok := AsError(err)
	return ok
}
