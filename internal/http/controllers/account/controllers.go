// Package account contiene los controllers de signup, perfil y cuentas conectadas.
package account

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/socialpulse/internal/http/dto/account"
	httperrors "github.com/dropDatabas3/socialpulse/internal/http/errors"
	"github.com/dropDatabas3/socialpulse/internal/http/helpers"
	mw "github.com/dropDatabas3/socialpulse/internal/http/middlewares"
	svc "github.com/dropDatabas3/socialpulse/internal/http/services/account"
	"github.com/dropDatabas3/socialpulse/internal/identity"
	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
	"github.com/dropDatabas3/socialpulse/internal/providers"
)

type Controllers struct {
	Account *AccountController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{Account: NewAccountController(s.Account)}
}

type AccountController struct {
	service svc.AccountService
}

func NewAccountController(service svc.AccountService) *AccountController {
	return &AccountController{service: service}
}

// Signup handles POST /signup.
func (c *AccountController) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := c.service.Signup(r.Context(), req)
	if err != nil {
		c.fail(w, r, "AccountController.Signup", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// Profile handles GET /profile.
func (c *AccountController) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := c.service.Profile(r.Context(), mw.GetIdentity(r.Context()))
	if err != nil {
		c.fail(w, r, "AccountController.Profile", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ProfileResponse{Profile: *p})
}

// UpdateProfile handles POST /update-profile.
func (c *AccountController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := c.service.UpdateProfile(r.Context(), mw.GetIdentity(r.Context()), req)
	if err != nil {
		c.fail(w, r, "AccountController.UpdateProfile", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.UpdateProfileResponse{Success: true, Profile: *p})
}

// ChangePassword handles POST /change-password.
func (c *AccountController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := c.service.ChangePassword(r.Context(), mw.GetIdentity(r.Context()), req); err != nil {
		c.fail(w, r, "AccountController.ChangePassword", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Password changed successfully"})
}

// DeleteAccount handles DELETE /delete-account.
func (c *AccountController) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := c.service.DeleteAccount(r.Context(), mw.GetIdentity(r.Context())); err != nil {
		c.fail(w, r, "AccountController.DeleteAccount", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Account deleted successfully"})
}

// ConnectedAccounts handles GET /connected-accounts.
func (c *AccountController) ConnectedAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := c.service.ConnectedAccounts(r.Context(), mw.GetIdentity(r.Context()))
	if err != nil {
		c.fail(w, r, "AccountController.ConnectedAccounts", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ConnectedAccountsResponse{ConnectedAccounts: list})
}

// ConnectAccount handles POST /connect-account.
func (c *AccountController) ConnectAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.ConnectAccountRequest
	if !decode(w, r, &req) {
		return
	}
	list, err := c.service.SetConnectedAccounts(r.Context(), mw.GetIdentity(r.Context()), *req.ConnectedAccounts)
	if err != nil {
		c.fail(w, r, "AccountController.ConnectAccount", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ConnectedAccountsResponse{Success: true, ConnectedAccounts: list})
}

type validatable interface{ Validate() error }

// decode lee y valida el body; escribe el error y devuelve false si falla.
func decode(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := helpers.ReadJSON(w, r, req); err != nil {
		httperrors.WriteError(w, err)
		return false
	}
	if err := req.Validate(); err != nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
		return false
	}
	return true
}

func (c *AccountController) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var appErr *httperrors.AppError
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		appErr = httperrors.ErrEmailTaken
	case errors.Is(err, svc.ErrWrongPassword):
		appErr = httperrors.ErrWrongPassword
	case errors.Is(err, svc.ErrProfileNotFound), errors.Is(err, identity.ErrUserNotFound):
		appErr = httperrors.ErrProfileNotFound
	case errors.Is(err, providers.ErrUnknownProvider):
		appErr = httperrors.ErrValidation.WithDetail(err.Error())
	case errors.Is(err, identity.ErrAdminUnavailable), errors.Is(err, identity.ErrServiceUnavailable):
		appErr = httperrors.ErrServiceUnavailable.WithCause(err)
	default:
		logger.From(r.Context()).Error("request failed", logger.Layer("controller"), logger.Op(op), logger.Err(err))
		appErr = httperrors.ErrInternalServerError.WithCause(err)
	}
	httperrors.WriteError(w, appErr)
}
