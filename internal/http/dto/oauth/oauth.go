// Package oauth contiene los DTOs de los endpoints /oauth/*.
package oauth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dropDatabas3/socialpulse/internal/http/dto"
)

// InitiateResponse is returned by GET /oauth/{provider}/initiate.
type InitiateResponse struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

// CallbackRequest holds the query parameters of GET /oauth/{provider}/callback.
type CallbackRequest struct {
	Provider         string
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// PlatformStatus is one entry of StatusResponse.
type PlatformStatus struct {
	Connected   bool       `json:"connected"`
	Username    string     `json:"username,omitempty"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
}

// StatusResponse always carries the five providers.
type StatusResponse struct {
	Status map[string]PlatformStatus `json:"status"`
}

// DisconnectRequest is the body of POST /oauth/disconnect.
type DisconnectRequest struct {
	Platform string `json:"platform"`
}

func (r DisconnectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Platform,
			validation.Required.Error("Platform required"),
			dto.KnownProvider,
		),
	)
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
