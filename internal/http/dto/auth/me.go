// Package auth contiene los DTOs de los endpoints autenticados.
package auth

import "time"

// SessionInfo es el device/IP/fecha de un evento de la sesión.
type SessionInfo struct {
	Device string    `json:"device"`
	IP     string    `json:"ip"`
	Date   time.Time `json:"date"`
}

// MeResponse es la identidad detrás del bearer token.
type MeResponse struct {
	UserID               string      `json:"user_id"`
	ClientID             string      `json:"client_id"`
	AuthName             string      `json:"auth_name,omitempty"`
	Login                SessionInfo `json:"login"`
	LastActivity         SessionInfo `json:"last_activity"`
	AccessTokenExpiresAt time.Time   `json:"access_token_expires_at"`
}
