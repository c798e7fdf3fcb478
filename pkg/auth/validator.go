package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultExpirySkew is the safety margin subtracted from a token's expiry
// when deciding local validity, so a token is never used when it could
// expire mid-request.
const DefaultExpirySkew = 60 * time.Second

// Usable reports whether the access token is still locally valid: its exp
// claim must lie strictly beyond now plus skew. The check is pure and does
// not contact the authorization server. A token whose payload cannot be
// decoded is unusable, the same as an absent token.
func Usable(token string, skew time.Duration) bool {
	expiry, ok := Expiry(token)
	if !ok {
		return false
	}
	return expiry.After(time.Now().Add(skew))
}

// Expiry extracts the expiry instant from the token's claims without
// verifying its signature. The second return is false when the token or
// its exp claim is absent or malformed.
func Expiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
