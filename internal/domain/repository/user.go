package repository

import (
	"context"
	"time"
)

// User es la vista de usuario que necesita el grant engine.
type User struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	Blocked       bool
	// OTPSecret es el seed TOTP cifrado con secretbox; vacío si no tiene 2FA.
	OTPSecret string
	CreatedAt time.Time
}

// HasTwoFactor reporta si el usuario tiene 2FA configurado.
func (u *User) HasTwoFactor() bool { return u.OTPSecret != "" }

// Bypass permite a un flujo interno de confianza (login vía plugin externo,
// emisión administrativa) autenticar sin contraseña.
type Bypass struct {
	PluginName string
	AuthName   string
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	EmailVerified bool
	OTPSecret     string
}

// UserRepository es el credential store.
type UserRepository interface {
	// VerifyCredentials busca por username exacto o email (case-insensitive)
	// y verifica la contraseña. Con bypass no se verifica la contraseña.
	// Retorna ErrNotFound tanto si no existe como si la contraseña no coincide.
	VerifyCredentials(ctx context.Context, identifier, password string, bypass *Bypass) (*User, error)

	// Create crea un usuario. Retorna ErrConflict si username o email ya existen.
	Create(ctx context.Context, in CreateUserInput) (*User, error)

	// SetOTPSecret reemplaza el seed TOTP cifrado (vacío lo desactiva).
	SetOTPSecret(ctx context.Context, userID, encrypted string) error
}
