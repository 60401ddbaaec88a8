// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

// Package memory provides in-process implementations of the auth repositories.
// They back the "memory" store driver and service tests; nothing survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/safeconnect/safeconnect/internal/auth"
)

// AccountRepository implements auth.AccountRepository over maps.
type AccountRepository struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.Account
	byEmail map[string]ulid.ULID
	// onDelete is called with the account ID after a successful delete.
	onDelete func(ulid.ULID)
}

// NewAccountRepository creates an empty AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[ulid.ULID]*auth.Account),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Create stores a new account. The email check and insert happen under one lock.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[account.Email]; taken {
		return oops.Code("ACCOUNT_EMAIL_TAKEN").
			With("operation", "create account").
			Wrap(auth.ErrDuplicateAccount)
	}
	if _, exists := r.byID[account.ID]; exists {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("account_id", account.ID.String()).
			Errorf("account ID already exists")
	}

	stored := copyAccount(account)
	r.byID[account.ID] = stored
	r.byEmail[account.Email] = account.ID
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return copyAccount(account), nil
}

// GetByEmail retrieves an account by exact email.
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return copyAccount(r.byID[id]), nil
}

// Delete removes an account.
func (r *AccountRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	account, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
		delete(r.byEmail, account.Email)
	}
	onDelete := r.onDelete
	r.mu.Unlock()

	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if onDelete != nil {
		onDelete(id)
	}
	return nil
}

// SessionRepository implements auth.SessionRepository over a map keyed by token hash.
type SessionRepository struct {
	mu     sync.RWMutex
	byHash map[string]*auth.Session
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{byHash: make(map[string]*auth.Session)}
}

// Create stores a new session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[session.TokenHash]; exists {
		return oops.Code("SESSION_CREATE_FAILED").
			With("session_id", session.ID.String()).
			Errorf("token hash already exists")
	}
	s := *session
	r.byHash[session.TokenHash] = &s
	return nil
}

// GetByTokenHash retrieves a session by token hash.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byHash[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	s := *session
	return &s, nil
}

// DeleteByTokenHash removes a session and reports whether it existed.
func (r *SessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byHash[tokenHash]
	delete(r.byHash, tokenHash)
	return ok, nil
}

// DeleteByAccount removes all sessions belonging to accountID.
func (r *SessionRepository) DeleteByAccount(_ context.Context, accountID ulid.ULID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, s := range r.byHash {
		if s.AccountID == accountID {
			delete(r.byHash, hash)
			n++
		}
	}
	return n, nil
}

// DeleteExpired removes sessions expired at now.
func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, s := range r.byHash {
		if s.IsExpiredAt(now) {
			delete(r.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHash)
}

// Store bundles the two repositories and cascades account deletion to sessions.
type Store struct {
	Accounts *AccountRepository
	Sessions *SessionRepository
}

// NewStore creates an empty Store.
func NewStore() *Store {
	s := &Store{
		Accounts: NewAccountRepository(),
		Sessions: NewSessionRepository(),
	}
	s.Accounts.onDelete = func(id ulid.ULID) {
		_, _ = s.Sessions.DeleteByAccount(context.Background(), id)
	}
	return s
}

func copyAccount(a *auth.Account) *auth.Account {
	c := *a
	if a.LastName != nil {
		v := *a.LastName
		c.LastName = &v
	}
	if a.Phone != nil {
		v := *a.Phone
		c.Phone = &v
	}
	return &c
}

var (
	_ auth.AccountRepository = (*AccountRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
)
