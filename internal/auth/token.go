// Package auth issues and validates the signed bearer tokens used for
// authentication. Tokens are HS256 JWTs carrying the subject username and
// the numeric account id; expiry is the only invalidation path.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginTokenTTL is the fixed lifetime of tokens issued at login.
const LoginTokenTTL = 20 * time.Minute

// Validation errors.
var (
	ErrInvalidSignature = errors.New("token signature or algorithm mismatch")
	ErrExpired          = errors.New("token expired")
	ErrMalformedClaim   = errors.New("token claims malformed")
)

// Claim is the decoded, verified payload of a token. It identifies the
// subject but is not authoritative for role flags; callers must re-fetch
// the account before any role-gated decision.
type Claim struct {
	Subject   string
	AccountID int
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	AccountID int `json:"id"`
}

// Issue produces a signed token encoding the subject, account id and an
// expiry of now + ttl.
func Issue(subject string, accountID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID: accountID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Validate verifies the signature and algorithm of the token and decodes
// its payload. It is a pure function of the token, the secret, and the
// current time.
func Validate(tokenString string, secret []byte) (Claim, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claim{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claim{}, ErrMalformedClaim
		default:
			return Claim{}, ErrInvalidSignature
		}
	}
	if !token.Valid {
		return Claim{}, ErrInvalidSignature
	}
	if claims.Subject == "" || claims.AccountID == 0 {
		return Claim{}, ErrMalformedClaim
	}

	claim := Claim{
		Subject:   claims.Subject,
		AccountID: claims.AccountID,
	}
	if claims.ExpiresAt != nil {
		claim.ExpiresAt = claims.ExpiresAt.Time
	}
	return claim, nil
}
