package authn

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"loadgrid/internal/protocol"
)

// bearerClaims is carried by tokens BearerValidator accepts. Subject
// doubles as the authentication-ID the hello's auth-id field must
// match.
type bearerClaims struct {
	jwt.RegisteredClaims
}

// BearerValidator checks a hello's credentials as a signed JWT bearer
// token, supporting the "bearer" scheme. It only verifies tokens; the
// package's IssueToken helper signs them.
type BearerValidator struct {
	secret []byte
}

func NewBearerValidator(secret []byte) *BearerValidator {
	return &BearerValidator{secret: secret}
}

func (v *BearerValidator) Scheme() string { return "bearer" }

func (v *BearerValidator) Validate(authID string, credentials []byte) Decision {
	token, err := jwt.ParseWithClaims(string(credentials), &bearerClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Decision{Code: protocol.CodeClientRejected, Message: "invalid bearer token"}
	}
	claims, ok := token.Claims.(*bearerClaims)
	if !ok {
		return Decision{Code: protocol.CodeClientRejected, Message: "invalid bearer token claims"}
	}
	if claims.Subject != authID {
		return Decision{Code: protocol.CodeClientRejected, Message: "token subject does not match authentication ID"}
	}
	return Decision{Accepted: true}
}

// IssueToken signs an HS256 bearer token for authID that expires after
// ttl. Nothing in this process calls it outside tests.
func IssueToken(secret []byte, authID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := bearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   authID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
