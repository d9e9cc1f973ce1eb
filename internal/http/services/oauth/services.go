// Package oauth contiene el broker de conexiones OAuth: initiate, callback,
// disconnect y status por proveedor.
package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/repository"
)

// DefaultStateTTL es la vida de un state pendiente.
const DefaultStateTTL = 600 * time.Second

// Store es lo que el broker necesita de la capa de persistencia.
type Store interface {
	SaveState(ctx context.Context, st repository.OAuthState, ttl time.Duration) error
	TakeState(ctx context.Context, token string) (*repository.OAuthState, error)
	PutCredential(ctx context.Context, userID string, p providers.Provider, c providers.Credential) error
	GetCredentialSummary(ctx context.Context, userID string, p providers.Provider) (*repository.CredentialSummary, error)
	DeleteCredential(ctx context.Context, userID string, p providers.Provider) error
}

// Adapters resuelve el adapter de un proveedor (providers.Registry).
type Adapters interface {
	Get(p providers.Provider) (providers.Adapter, error)
}

// Deps contiene las dependencias del broker.
type Deps struct {
	Store    Store
	Adapters Adapters
	StateTTL time.Duration
	Now      func() time.Time // opcional, para tests
}

// Services agrupa los services del dominio OAuth.
type Services struct {
	Broker BrokerService
}

// NewServices crea el agregador de services OAuth.
func NewServices(d Deps) Services {
	return Services{Broker: NewBrokerService(d)}
}

// adapterFor resuelve y valida el adapter; un proveedor conocido sin
// adapter registrado cuenta como no configurado.
func adapterFor(reg Adapters, p providers.Provider) (providers.Adapter, error) {
	a, err := reg.Get(p)
	if err != nil || a == nil {
		return nil, fmt.Errorf("%w: %s", providers.ErrNotConfigured, p)
	}
	if !a.Configured() {
		return nil, fmt.Errorf("%w: %s", providers.ErrNotConfigured, p)
	}
	return a, nil
}
