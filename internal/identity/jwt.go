package identity

import (
	"context"
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HS256 access tokens locally with the identity
// service's shared secret. No network call is made.
type JWTVerifier struct {
	secret   []byte
	audience string
}

func NewJWTVerifier(secret, audience string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("identity: jwt secret is empty")
	}
	return &JWTVerifier{secret: []byte(secret), audience: audience}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*UserIdentity, error) {
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwtv5.WithAudience(v.audience))
	}
	tk, err := jwtv5.Parse(token, func(*jwtv5.Token) (any, error) { return v.secret, nil }, opts...)
	if err != nil || !tk.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub := strClaim(claims, "sub")
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	u := &UserIdentity{ID: sub, Email: strClaim(claims, "email")}
	if md, ok := claims["user_metadata"].(map[string]any); ok {
		if n, ok := md["name"].(string); ok {
			u.Name = n
		}
	}
	return u, nil
}

func strClaim(m jwtv5.MapClaims, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}
