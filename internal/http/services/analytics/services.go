// Package analytics agrega las métricas normalizadas de los proveedores
// conectados de un usuario.
package analytics

import (
	"context"
	"time"

	"github.com/dropDatabas3/socialpulse/internal/providers"
)

// DefaultProviderTimeout acota cada llamada a un proveedor.
const DefaultProviderTimeout = 8 * time.Second

// CredentialReader es lo que el agregador necesita del repositorio.
type CredentialReader interface {
	GetCredential(ctx context.Context, userID string, p providers.Provider) (*providers.Credential, error)
}

// Adapters resuelve el adapter de un proveedor (providers.Registry).
type Adapters interface {
	Get(p providers.Provider) (providers.Adapter, error)
}

// Deps contiene las dependencias del agregador.
type Deps struct {
	Credentials     CredentialReader
	Adapters        Adapters
	ProviderTimeout time.Duration
}

// Services agrupa los services del dominio analytics.
type Services struct {
	Aggregator AggregatorService
}

// NewServices crea el agregador de services analytics.
func NewServices(d Deps) Services {
	return Services{Aggregator: NewAggregatorService(d)}
}
