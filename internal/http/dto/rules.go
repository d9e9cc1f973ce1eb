// Package dto agrupa los request/response de la API y las reglas de
// validación compartidas.
package dto

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dropDatabas3/socialpulse/internal/providers"
)

// KnownProvider valida que un string sea uno de los proveedores soportados.
var KnownProvider = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := providers.Parse(s); err != nil {
		return errors.New("unknown platform")
	}
	return nil
})

// ProviderList valida cada elemento de una lista de proveedores.
var ProviderList = validation.By(func(value interface{}) error {
	list, _ := value.([]string)
	for i, s := range list {
		if _, err := providers.Parse(s); err != nil {
			return fmt.Errorf("item %d: unknown platform %q", i, s)
		}
	}
	return nil
})
