package tokenstore

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a bearer token without verifying it.
// The signature is never checked here: only the resource server can do
// that.
type TokenInfo struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry at or before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Inspect decodes the registered claims of a JWT. ok is false for opaque
// tokens, which are still valid bearer tokens.
func Inspect(token string) (info TokenInfo, ok bool) {
	var claims gojwt.RegisteredClaims
	if _, _, err := gojwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, false
	}
	info.Subject = claims.Subject
	info.Issuer = claims.Issuer
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, true
}
