package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry decodes a JWT access token without verifying its
// signature and returns the exp claim. Display and scheduling hints
// only; the token is an opaque credential everywhere else and expiry
// is never used for an authorization decision.
func TokenExpiry(token string) (time.Time, bool) {
	claims := decodeClaims(token)
	if claims == nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenSubject decodes a JWT access token without verification and
// returns the sub claim.
func TokenSubject(token string) (string, bool) {
	claims := decodeClaims(token)
	if claims == nil {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

func decodeClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}
