// Package oauth contiene los DTOs del token endpoint.
package oauth

// TokenResponse es la respuesta exitosa de POST /oauth/token (RFC 6749 §5.1).
type TokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn *int64 `json:"refresh_token_expires_in,omitempty"`
}
