// Package account contiene los DTOs de signup, perfil y cuentas conectadas.
package account

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dropDatabas3/socialpulse/internal/http/dto"
	"github.com/dropDatabas3/socialpulse/internal/identity"
)

// MinPasswordLength applies to signup and change-password.
const MinPasswordLength = 6

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 200)),
	)
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SignupResponse struct {
	Success bool              `json:"success"`
	User    User              `json:"user"`
	Session *identity.Session `json:"session,omitempty"`
}

type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type ProfileResponse struct {
	Profile Profile `json:"profile"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type UpdateProfileResponse struct {
	Success bool    `json:"success"`
	Profile Profile `json:"profile"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword,
			validation.Required,
			validation.Length(MinPasswordLength, 200).Error("New password must be at least 6 characters"),
		),
	)
}

// ConnectAccountRequest uses a pointer so a missing array is told apart from [].
type ConnectAccountRequest struct {
	ConnectedAccounts *[]string `json:"connectedAccounts"`
}

func (r ConnectAccountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ConnectedAccounts,
			validation.NotNil.Error("Invalid connected accounts data"),
			validation.By(func(v interface{}) error {
				list, _ := v.(*[]string)
				if list == nil {
					return nil
				}
				return validation.Validate(*list, dto.ProviderList)
			}),
		),
	)
}

type ConnectedAccountsResponse struct {
	Success           bool     `json:"success,omitempty"`
	ConnectedAccounts []string `json:"connectedAccounts"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
