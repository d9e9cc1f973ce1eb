package validation

import (
	"fmt"
	"regexp"
)

// Reglas para scopes OAuth de proveedores:
// - minúsculas
// - empieza y termina con [a-z0-9]
// - en el medio se permite [a-z0-9:_.-]
// - largo 1..64, sin espacios ni separadores (la lista se une con "," o " " al armar la URL)
//
// Válidos: user_profile, tweet.read, offline.access, r_liteprofile, user.info.basic
// Inválidos: "", "Tweet.Read", "a b", "a,b", "pages_show_list;drop"
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidScopeName reporta si name cumple las reglas.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// Scopes valida una lista completa y devuelve el primer scope inválido.
func Scopes(scopes []string) error {
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if !ValidScopeName(s) {
			return fmt.Errorf("invalid scope %q", s)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("duplicated scope %q", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}
