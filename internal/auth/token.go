// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinTokenSecretLength is the minimum HMAC key length in bytes.
const MinTokenSecretLength = 32

// tokenIssuer is the "iss" claim of every credential.
const tokenIssuer = "safeconnect"

// TokenClaims is what a session credential asserts.
type TokenClaims struct {
	AccountID ulid.ULID
	SessionID ulid.ULID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies session credentials.
type TokenIssuer interface {
	// Issue returns a signed credential for claims.
	Issue(claims TokenClaims) (string, error)

	// Parse verifies signature and expiry as of now and returns the claims.
	Parse(token string, now time.Time) (TokenClaims, error)
}

// JWTIssuer implements TokenIssuer with HS256 JSON Web Tokens.
type JWTIssuer struct {
	secret []byte
}

// NewJWTIssuer creates a JWTIssuer signing with secret.
func NewJWTIssuer(secret []byte) (*JWTIssuer, error) {
	if len(secret) < MinTokenSecretLength {
		return nil, oops.Code("TOKEN_SECRET_TOO_SHORT").
			With("min", MinTokenSecretLength).
			With("length", len(secret)).
			Errorf("token secret must be at least %d bytes", MinTokenSecretLength)
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &JWTIssuer{secret: key}, nil
}

// Issue signs claims into a compact JWT.
func (i *JWTIssuer) Issue(claims TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   claims.AccountID.String(),
		ID:        claims.SessionID.String(),
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("session_id", claims.SessionID.String()).
			Wrap(err)
	}
	return signed, nil
}

// Parse verifies the token's HMAC signature and that now is before its expiry.
func (i *JWTIssuer) Parse(token string, now time.Time) (TokenClaims, error) {
	registered := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, registered,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, oops.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return TokenClaims{}, oops.Code("TOKEN_INVALID").Wrap(err)
	}

	accountID, err := ulid.Parse(registered.Subject)
	if err != nil {
		return TokenClaims{}, oops.Code("TOKEN_INVALID").
			With("claim", "sub").
			Wrap(err)
	}
	sessionID, err := ulid.Parse(registered.ID)
	if err != nil {
		return TokenClaims{}, oops.Code("TOKEN_INVALID").
			With("claim", "jti").
			Wrap(err)
	}

	claims := TokenClaims{
		AccountID: accountID,
		SessionID: sessionID,
		ExpiresAt: registered.ExpiresAt.Time,
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	return claims, nil
}

// Compile-time interface check.
var _ TokenIssuer = (*JWTIssuer)(nil)
