package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/passgrant/internal/oauth"
)

// OAuthError es el cuerpo de error del token endpoint. error y error_code
// llevan el mismo valor: el primero es el nombre RFC 6749, el segundo el que
// esperan los clientes existentes.
type OAuthError struct {
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteOAuthError serializa err. Los *oauth.Error usan el status de su kind;
// cualquier otro error es server_error/500 y su texto no se expone.
func WriteOAuthError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := OAuthError{Error: "server_error", ErrorCode: "server_error", ErrorDescription: "An unexpected error occurred"}
	if oe, ok := oauth.AsError(err); ok {
		status = oe.Kind.Status()
		body = OAuthError{Error: oe.Kind.Code(), ErrorCode: oe.Kind.Code(), ErrorDescription: oe.Description}
		if oe.Kind == oauth.KindInvalidToken {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		}
	}
	WriteOAuthJSON(w, status, body)
}

// WriteOAuthJSON escribe v con los headers anti-cache de RFC 6749 §5.1.
func WriteOAuthJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
