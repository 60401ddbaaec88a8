// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionTTL is how long a session stays valid after issuance.
// Sessions are not extended by use.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Session represents an issued session credential.
type Session struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(id, accountID ulid.ULID, tokenHash string, issuedAt, expiresAt time.Time) (*Session, error) {
	if id.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ID").Errorf("session ID cannot be zero")
	}
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if !expiresAt.After(issuedAt) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").
			With("issued_at", issuedAt).
			With("expires_at", expiresAt).
			Errorf("expiry must be after issuance")
	}

	return &Session{
		ID:        id,
		AccountID: accountID,
		TokenHash: tokenHash,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// IsExpiredAt reports whether the session is expired at t.
// A session is valid strictly before ExpiresAt.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// HashSessionToken computes the SHA256 hash of a session token.
// Only the hash is persisted; the token itself stays with the caller.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns ErrNotFound if absent. Expiry is not checked here.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByTokenHash removes a session and reports whether a row existed.
	// Deleting an absent session is not an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error)

	// DeleteByAccount removes all sessions for an account and returns the count.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error)

	// DeleteExpired removes sessions expired at now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
