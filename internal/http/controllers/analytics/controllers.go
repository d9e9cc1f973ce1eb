// Package analytics contiene los controllers de /analytics/*.
package analytics

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/socialpulse/internal/http/dto/analytics"
	httperrors "github.com/dropDatabas3/socialpulse/internal/http/errors"
	"github.com/dropDatabas3/socialpulse/internal/http/helpers"
	mw "github.com/dropDatabas3/socialpulse/internal/http/middlewares"
	svc "github.com/dropDatabas3/socialpulse/internal/http/services/analytics"
	"github.com/dropDatabas3/socialpulse/internal/providers"
)

type Controllers struct {
	Analytics *AnalyticsController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{Analytics: NewAnalyticsController(s.Aggregator)}
}

type AnalyticsController struct {
	service svc.AggregatorService
}

func NewAnalyticsController(service svc.AggregatorService) *AnalyticsController {
	return &AnalyticsController{service: service}
}

// All handles GET /analytics/all. Always 200 once authenticated.
func (c *AnalyticsController) All(w http.ResponseWriter, r *http.Request) {
	res := c.service.FetchAll(r.Context(), mw.GetIdentity(r.Context()))

	out := dto.AllResponse{Analytics: make(map[string]*providers.Analytics, len(res))}
	for p, an := range res {
		out.Analytics[p.String()] = an
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Provider handles GET /analytics/{provider}.
func (c *AnalyticsController) Provider(w http.ResponseWriter, r *http.Request) {
	an, err := c.service.Fetch(r.Context(), mw.GetIdentity(r.Context()), chi.URLParam(r, "provider"))
	if err != nil {
		httperrors.WriteError(w, helpers.ProviderError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, an)
}
