package repository

import (
	"context"
	"time"
)

// RegistrationState es el estado de una solicitud de alta.
type RegistrationState string

const (
	RegistrationPending  RegistrationState = "PENDING"
	RegistrationRejected RegistrationState = "REJECTED"
	RegistrationAccepted RegistrationState = "ACCEPTED"
)

// Registration es una solicitud de alta que espera aprobación de un admin.
type Registration struct {
	ID        string
	Username  string
	Email     string
	State     RegistrationState
	CreatedAt time.Time
}

// CreateRegistrationInput contiene los datos para crear una solicitud.
type CreateRegistrationInput struct {
	ID       string
	Username string
	Email    string
	State    RegistrationState
}

// RegistrationRepository resuelve solicitudes de alta.
type RegistrationRepository interface {
	// FindByIdentifier retorna las solicitudes cuyo email coincide sin
	// distinguir mayúsculas, o cuyo username coincide exactamente.
	// Sin coincidencias retorna un slice vacío, no ErrNotFound.
	FindByIdentifier(ctx context.Context, identifier string) ([]Registration, error)

	Create(ctx context.Context, in CreateRegistrationInput) (*Registration, error)
}
