// Package health contiene DTOs para endpoints de health check.
package health

import (
	"time"

	"github.com/dropDatabas3/passgrant/internal/app/instance"
)

// ComponentStatus representa el estado de un componente específico.
type ComponentStatus struct {
	Status  string `json:"status"`            // "ok" | "error"
	Message string `json:"message,omitempty"` // detalle del error
}

// ReadyResponse es la respuesta de /readyz.
type ReadyResponse struct {
	Status     string                     `json:"status"` // "ready" | "unavailable"
	Components map[string]ComponentStatus `json:"components"`
	Instance   *instance.Info             `json:"instance,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
}
