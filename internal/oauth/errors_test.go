package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMapping(t *testing.T) {
	cases := map[Kind]struct {
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
		KindInvalidToken:                   {"invalid_token", http.StatusUnauthorized},
	}
	for k, want := range cases {
		assert.Equal(t, want.code, k.Code())
		assert.Equal(t, want.status, k.Status())
	}
	assert.Equal(t, "server_error", Kind(0).Code())
	assert.Equal(t, http.StatusInternalServerError, Kind(0).Status())
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", newError(KindInvalidGrant, "refresh token has expired"))
	assert.ErrorIs(t, err, ErrInvalidGrant)
	assert.NotErrorIs(t, err, ErrInvalidClient)

	oe, ok := AsError(err)
	assert.True(t, ok)
	assert.Equal(t, "invalid_grant: refresh token has expired", oe.Error())

	internal := storeFailure("save token", errors.New("timeout"))
	assert.False(t, IsProtocolError(internal))
	assert.EqualError(t, internal, "oauth: save token: timeout")
}
