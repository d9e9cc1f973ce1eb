// Package account contiene signup, perfil, cambio de contraseña, baja de
// cuenta y la lista de cuentas conectadas del usuario.
package account

import (
	"context"
	"time"

	"github.com/dropDatabas3/socialpulse/internal/identity"
	"github.com/dropDatabas3/socialpulse/internal/repository"
)

// Store es lo que el service necesita de la capa de persistencia.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*repository.Profile, error)
	PutProfile(ctx context.Context, p repository.Profile) error
	ConnectedAccounts(ctx context.Context, userID string) ([]string, error)
	SetConnectedAccounts(ctx context.Context, userID string, accounts []string) error
	DeleteUserData(ctx context.Context, userID string) (int, error)
}

// Deps contiene las dependencias del service de cuentas.
type Deps struct {
	Store    Store
	Identity identity.Admin
	Now      func() time.Time
}

// Services agrupa los services del dominio account.
type Services struct {
	Account AccountService
}

func NewServices(d Deps) Services {
	return Services{Account: NewAccountService(d)}
}
