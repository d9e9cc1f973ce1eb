// Package oauth contiene los controllers de /oauth/*.
package oauth

import (
	svc "github.com/dropDatabas3/socialpulse/internal/http/services/oauth"
	"github.com/dropDatabas3/socialpulse/internal/notify"
)

// Controllers agrupa los controllers del dominio OAuth.
type Controllers struct {
	Broker *BrokerController
}

func NewControllers(s svc.Services, renderer *notify.Renderer) *Controllers {
	return &Controllers{Broker: NewBrokerController(s.Broker, renderer)}
}
