// Package health contiene los controllers de liveness y readiness.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dropDatabas3/passgrant/internal/app/instance"
	dto "github.com/dropDatabas3/passgrant/internal/http/dto/health"
	"github.com/dropDatabas3/passgrant/internal/observability/logger"
)

// Check es una dependencia que /readyz debe poder alcanzar.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthController struct {
	checks   []Check
	instance *instance.Holder
	timeout  time.Duration
}

func NewHealthController(h *instance.Holder, checks ...Check) *HealthController {
	return &HealthController{checks: checks, instance: h, timeout: 2 * time.Second}
}

// Healthz: el proceso está vivo.
func (c *HealthController) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pinga las dependencias y reporta la info de la instancia.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("health.readyz"))

	resp := dto.ReadyResponse{
		Status:     "ready",
		Components: make(map[string]dto.ComponentStatus, len(c.checks)+1),
		Timestamp:  time.Now().UTC(),
	}
	for _, chk := range c.checks {
		if err := chk.Ping(ctx); err != nil {
			log.Warn("readiness check failed", logger.Component(chk.Name), logger.Err(err))
			resp.Status = "unavailable"
			resp.Components[chk.Name] = dto.ComponentStatus{Status: "error", Message: err.Error()}
			continue
		}
		resp.Components[chk.Name] = dto.ComponentStatus{Status: "ok"}
	}

	if c.instance != nil {
		info, err := c.instance.Get(ctx)
		if err != nil {
			log.Warn("instance info unavailable", logger.Err(err))
			resp.Status = "unavailable"
			resp.Components["instance"] = dto.ComponentStatus{Status: "error", Message: err.Error()}
		} else {
			resp.Instance = &info
		}
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
