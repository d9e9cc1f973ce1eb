package oauth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/socialpulse/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/socialpulse/internal/http/errors"
	"github.com/dropDatabas3/socialpulse/internal/http/helpers"
	mw "github.com/dropDatabas3/socialpulse/internal/http/middlewares"
	svc "github.com/dropDatabas3/socialpulse/internal/http/services/oauth"
	"github.com/dropDatabas3/socialpulse/internal/notify"
	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
	"github.com/dropDatabas3/socialpulse/internal/providers"
)

type BrokerController struct {
	service  svc.BrokerService
	renderer *notify.Renderer
}

func NewBrokerController(service svc.BrokerService, renderer *notify.Renderer) *BrokerController {
	if renderer == nil {
		renderer = notify.NewRenderer("")
	}
	return &BrokerController{service: service, renderer: renderer}
}

// Initiate handles GET /oauth/{provider}/initiate.
func (c *BrokerController) Initiate(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.Initiate(r.Context(), mw.GetIdentity(r.Context()), chi.URLParam(r, "provider"))
	if err != nil {
		httperrors.WriteError(w, helpers.ProviderError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// Callback handles GET /oauth/{provider}/callback. It always answers with
// the notification page, never with a JSON error.
func (c *BrokerController) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msg := c.service.Callback(r.Context(), dto.CallbackRequest{
		Provider:         chi.URLParam(r, "provider"),
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err := c.renderer.Render(w, msg); err != nil {
		logger.From(r.Context()).Error("render callback page failed",
			logger.Layer("controller"), logger.Op("BrokerController.Callback"), logger.Err(err))
	}
}

// Throttled answers a rate-limited callback with the notification page so
// the popup still delivers one oauth-error message and closes.
func (c *BrokerController) Throttled(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "provider")
	msg := notify.Failure(providers.Provider(raw), svc.MsgUnknown)
	if p, err := providers.Parse(raw); err == nil {
		msg = notify.Failure(p, svc.MsgRateLimited)
	}
	if err := c.renderer.Render(w, msg); err != nil {
		logger.From(r.Context()).Error("render throttled page failed",
			logger.Layer("controller"), logger.Op("BrokerController.Throttled"), logger.Err(err))
	}
}

// Status handles GET /oauth/status.
func (c *BrokerController) Status(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.Status(r.Context(), mw.GetIdentity(r.Context()))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// Disconnect handles POST /oauth/disconnect.
func (c *BrokerController) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req dto.DisconnectRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
		return
	}

	if err := c.service.Disconnect(r.Context(), mw.GetIdentity(r.Context()), req.Platform); err != nil {
		httperrors.WriteError(w, helpers.ProviderError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// OpenerScript serves the originating-window helper.
func (c *BrokerController) OpenerScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
	_, _ = w.Write(notify.OpenerScript())
}
