package repository

import "context"

// Grant types soportados por el token endpoint.
const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

// Client representa un cliente OAuth registrado.
type Client struct {
	ID         string
	Name       string
	GrantTypes []string
}

// AllowsGrant reporta si el cliente puede usar grantType.
func (c *Client) AllowsGrant(grantType string) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// CreateClientInput contiene los datos para registrar un cliente.
type CreateClientInput struct {
	ID         string
	Name       string
	Secret     string
	GrantTypes []string
}

// ClientRepository es el registro de clientes.
type ClientRepository interface {
	// Lookup valida el par id/secret.
	// Retorna ErrNotFound si el id no existe o el secret no coincide.
	Lookup(ctx context.Context, id, secret string) (*Client, error)

	// Create registra un cliente. Retorna ErrConflict si el id ya existe.
	Create(ctx context.Context, in CreateClientInput) (*Client, error)
}
