package helpers

import (
	"errors"

	httperrors "github.com/dropDatabas3/socialpulse/internal/http/errors"
	"github.com/dropDatabas3/socialpulse/internal/providers"
)

// ProviderError mapea los errores del dominio providers a errores HTTP.
// Lo que no reconoce queda como 500 con la causa.
func ProviderError(err error) *httperrors.AppError {
	var ue *providers.UpstreamError
	switch {
	case errors.Is(err, providers.ErrUnknownProvider):
		return httperrors.ErrUnknownProvider.WithCause(err)
	case errors.Is(err, providers.ErrNotConfigured):
		return httperrors.ErrProviderNotConfigured.WithCause(err)
	case errors.Is(err, providers.ErrNotConnected):
		return httperrors.ErrNotConnected.WithCause(err)
	case errors.As(err, &ue) && errors.Is(ue, providers.ErrUpstreamRejected):
		return httperrors.ErrUpstreamRejected.WithDetail(providers.UserMessage(err)).WithCause(err)
	case errors.Is(err, providers.ErrUpstreamUnreachable):
		return httperrors.ErrUpstreamUnreachable.WithDetail(providers.UserMessage(err)).WithCause(err)
	}
	return httperrors.ErrInternalServerError.WithCause(err)
}
