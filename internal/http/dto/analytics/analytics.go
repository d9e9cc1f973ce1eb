// Package analytics contiene los DTOs de /analytics/*.
package analytics

import "github.com/dropDatabas3/socialpulse/internal/providers"

// AllResponse is returned by GET /analytics/all; it always has five keys.
type AllResponse struct {
	Analytics map[string]*providers.Analytics `json:"analytics"`
}
