// Package auth issues and verifies caller tokens. A token binds a request
// to one address; role checks happen in the ledger.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/payroll-ledger/payroll"
)

var (
	ErrMissingToken = errors.New("token not found")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Issuer signs and verifies HS256 tokens whose subject is an address.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer returns an issuer for secret. The secret must not be empty.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a token for addr valid for ttl.
func (i *Issuer) Issue(addr payroll.Address, ttl time.Duration) (string, error) {
	if addr.IsZero() {
		return "", fmt.Errorf("%w: cannot issue a token for the zero address", payroll.ErrInvalidArgument)
	}
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   payroll.NewAddress(string(addr)).String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify returns the address a valid token was issued for.
func (i *Issuer) Verify(tokenString string) (payroll.Address, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	addr := payroll.NewAddress(claims.Subject)
	if addr.IsZero() {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return addr, nil
}
