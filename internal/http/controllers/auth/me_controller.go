// Package auth contiene los controllers de endpoints protegidos por bearer.
package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/passgrant/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/passgrant/internal/http/errors"
	"github.com/dropDatabas3/passgrant/internal/oauth"
)

// MeController handles GET /v1/me. It must run behind RequireBearer.
type MeController struct{}

func NewMeController() *MeController { return &MeController{} }

func (c *MeController) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := oauth.IdentityFrom(r.Context())
	if !ok {
		httperrors.WriteOAuthError(w, oauth.ErrInvalidToken)
		return
	}
	t := id.Token
	resp := dto.MeResponse{
		UserID:               id.UserID,
		ClientID:             id.ClientID,
		AuthName:             id.AuthName,
		Login:                dto.SessionInfo{Device: t.LoginDevice, IP: t.LoginIP, Date: t.LoginDate},
		LastActivity:         dto.SessionInfo{Device: t.LastActivityDevice, IP: t.LastActivityIP, Date: t.LastActivityDate},
		AccessTokenExpiresAt: t.AccessTokenExpiresAt,
	}
	httperrors.WriteOAuthJSON(w, http.StatusOK, resp)
}
