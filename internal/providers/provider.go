// Package providers defines the closed set of social networks the service
// can connect to, the adapter contract every network implements, and the
// normalized analytics shape they all produce.
//
// Architecture:
//   - Provider: closed enum, parsed once at the HTTP edge
//   - Adapter: authorize URL, code exchange, profile and analytics per network
//   - Registry: Provider -> Adapter, built at startup from config
//
// Adapters live in one sub-package per network.
package providers

import (
	"fmt"
	"strings"
)

// Provider identifies a supported social network.
type Provider string

const (
	Instagram Provider = "instagram"
	Facebook  Provider = "facebook"
	Twitter   Provider = "twitter"
	LinkedIn  Provider = "linkedin"
	TikTok    Provider = "tiktok"
)

var all = []Provider{Instagram, Facebook, Twitter, LinkedIn, TikTok}

// All returns every supported provider in a stable order.
func All() []Provider {
	out := make([]Provider, len(all))
	copy(out, all)
	return out
}

// Parse maps a path segment or payload value to a Provider.
func Parse(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range all {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

func (p Provider) String() string { return string(p) }

// DisplayName is the human name used in notifications and notes.
func (p Provider) DisplayName() string {
	switch p {
	case Instagram:
		return "Instagram"
	case Facebook:
		return "Facebook"
	case Twitter:
		return "Twitter"
	case LinkedIn:
		return "LinkedIn"
	case TikTok:
		return "TikTok"
	}
	return string(p)
}
