// Package health contiene los controllers de health check.
package health

import (
	"net/http"

	"github.com/dropDatabas3/socialpulse/internal/http/helpers"
	svc "github.com/dropDatabas3/socialpulse/internal/http/services/health"
)

// Controllers agrupa todos los controllers del dominio health.
type Controllers struct {
	Health *HealthController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{Health: NewHealthController(s.Health)}
}

type HealthController struct {
	service svc.HealthService
}

func NewHealthController(s svc.HealthService) *HealthController {
	return &HealthController{service: s}
}

// Live handles GET /health.
func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz; 503 when the KV store is down.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	rep := c.service.Ready(r.Context())
	status := http.StatusOK
	if rep.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, rep)
}
