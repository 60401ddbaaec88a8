// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/safeconnect/safeconnect/pkg/errutil"
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Account   PublicAccount
	Token     string
	ExpiresAt time.Time
}

// Service provides authentication operations.
// It holds no per-user state; callers pass the session credential explicitly.
type Service struct {
	accounts   AccountRepository
	sessions   SessionRepository
	hasher     PasswordHasher
	tokens     TokenIssuer
	hashes     *hashLimiter
	logger     *slog.Logger
	clock      func() time.Time
	sessionTTL time.Duration
	hashSlots  int

	dummyMu     sync.Mutex
	dummyDigest string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

// WithHashConcurrency caps concurrent hash operations. Zero or less means GOMAXPROCS.
func WithHashConcurrency(n int) Option {
	return func(s *Service) { s.hashSlots = n }
}

// NewService creates a Service that logs to slog.Default().
func NewService(accounts AccountRepository, sessions SessionRepository, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) (*Service, error) {
	return NewServiceWithLogger(accounts, sessions, hasher, tokens, slog.Default(), opts...)
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(
	accounts AccountRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	logger *slog.Logger,
	opts ...Option,
) (*Service, error) {
	switch {
	case accounts == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("accounts repository is required")
	case sessions == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("sessions repository is required")
	case hasher == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	case tokens == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token issuer is required")
	case logger == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}

	s := &Service{
		accounts:   accounts,
		sessions:   sessions,
		hasher:     hasher,
		tokens:     tokens,
		logger:     logger,
		clock:      time.Now,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessionTTL <= 0 {
		return nil, oops.Code("AUTH_SERVICE_INVALID").
			With("session_ttl", s.sessionTTL).
			Errorf("session TTL must be positive")
	}
	s.hashes = newHashLimiter(hasher, s.hashSlots)
	return s, nil
}

// Register creates an account and signs it in.
// Validation runs before any hashing or store mutation.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (result *AuthResult, err error) {
	defer func() { recordOperation(OpRegister, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	digest, err := s.hashes.hash(ctx, req.Password)
	if err != nil {
		return nil, s.internalError(ctx, OpRegister, "hash password", err)
	}

	account, err := NewAccount(req.Email, digest, req.FirstName, req.LastName, req.Phone, s.clock().UTC())
	if err != nil {
		return nil, s.internalError(ctx, OpRegister, "build account", err)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			s.logger.InfoContext(ctx, "registration rejected, email taken")
			return nil, duplicateAccountError()
		}
		return nil, s.internalError(ctx, OpRegister, "create account", err)
	}

	result, err = s.issueSession(ctx, OpRegister, account)
	if err != nil {
		s.discardAccount(ctx, account)
		return nil, err
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID.String())
	return result, nil
}

// Login authenticates by email and password and issues a new session.
// An unknown email and a wrong password produce the same error, and both
// pay for a full password verification.
func (s *Service) Login(ctx context.Context, email, password string) (result *AuthResult, err error) {
	defer func() { recordOperation(OpLogin, err) }()

	if email == "" {
		return nil, validationError("email", "email is required")
	}
	if password == "" {
		return nil, validationError("password", "password is required")
	}

	account, lookupErr := s.accounts.GetByEmail(ctx, email)
	var targetDigest string
	switch {
	case lookupErr == nil:
		targetDigest = account.PasswordDigest
	case errors.Is(lookupErr, ErrNotFound):
		account = nil
		targetDigest, err = s.dummyPasswordDigest(ctx)
		if err != nil {
			return nil, s.internalError(ctx, OpLogin, "prepare dummy digest", err)
		}
	default:
		return nil, s.internalError(ctx, OpLogin, "get account by email", lookupErr)
	}

	valid, err := s.hashes.verify(ctx, password, targetDigest)
	if err != nil {
		return nil, s.internalError(ctx, OpLogin, "verify password", err)
	}
	if account == nil || !valid {
		return nil, invalidCredentialsError()
	}

	result, err = s.issueSession(ctx, OpLogin, account)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "login succeeded", "account_id", account.ID.String())
	return result, nil
}

// Logout revokes the session identified by token.
// Logging out an unknown or already revoked token succeeds.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	defer func() { recordOperation(OpLogout, err) }()

	if strings.TrimSpace(token) == "" {
		return missingCredentialError()
	}

	removed, err := s.sessions.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		return s.internalError(ctx, OpLogout, "delete session", err)
	}
	if !removed {
		s.logger.DebugContext(ctx, "logout for unknown session")
	}
	return nil
}

// GetCurrentAccount returns the account owning a valid session.
func (s *Service) GetCurrentAccount(ctx context.Context, token string) (account *PublicAccount, err error) {
	defer func() { recordOperation(OpGetCurrentAccount, err) }()

	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	found, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "orphaned session",
				"session_id", session.ID.String(),
				"account_id", session.AccountID.String())
			return nil, accountNotFoundError(session.AccountID.String())
		}
		return nil, s.internalError(ctx, OpGetCurrentAccount, "get account by id", err)
	}

	public := found.Public()
	return &public, nil
}

// ValidateSession checks token and returns its live session.
// It fails with ErrInvalidSession when the signature or expiry check fails,
// or when the session row is gone.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, invalidSessionError("empty token")
	}

	now := s.clock()
	claims, err := s.tokens.Parse(token, now)
	if err != nil {
		return nil, invalidSessionError("token rejected")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalidSessionError("session revoked")
		}
		return nil, s.internalError(ctx, "validate_session", "get session by token hash", err)
	}

	if session.ID != claims.SessionID || session.AccountID != claims.AccountID {
		return nil, invalidSessionError("claims mismatch")
	}
	if session.IsExpiredAt(now) {
		return nil, invalidSessionError("session expired")
	}
	return session, nil
}

// PurgeExpiredSessions deletes sessions that have expired and returns the count.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.clock())
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	SessionsPurged.Add(float64(n))
	return n, nil
}

func (s *Service) issueSession(ctx context.Context, operation string, account *Account) (*AuthResult, error) {
	// JWT timestamps have second precision; truncate so the row and the token agree.
	issuedAt := s.clock().UTC().Truncate(time.Second)
	claims := TokenClaims{
		AccountID: account.ID,
		SessionID: ulid.Make(),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.sessionTTL),
	}

	token, err := s.tokens.Issue(claims)
	if err != nil {
		return nil, s.internalError(ctx, operation, "sign session token", err)
	}

	session, err := NewSession(claims.SessionID, account.ID, HashSessionToken(token), claims.IssuedAt, claims.ExpiresAt)
	if err != nil {
		return nil, s.internalError(ctx, operation, "build session", err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, s.internalError(ctx, operation, "persist session", err)
	}

	return &AuthResult{
		Account:   account.Public(),
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// discardAccount removes an account whose first session could not be issued,
// so the email can be registered again. The request context may already be
// done, so the delete runs without its cancellation.
func (s *Service) discardAccount(ctx context.Context, account *Account) {
	if err := s.accounts.Delete(context.WithoutCancel(ctx), account.ID); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "failed to remove account without session",
			oops.With("operation", OpRegister).With("account_id", account.ID.String()).Wrap(err))
	}
}

// dummyPasswordDigest returns a digest that matches no password, produced by
// the configured hasher so verifying against it costs the same as a real one.
// Failures are not cached.
func (s *Service) dummyPasswordDigest(ctx context.Context) (string, error) {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyDigest != "" {
		return s.dummyDigest, nil
	}
	digest, err := s.hashes.hash(ctx, ulid.Make().String())
	if err != nil {
		return "", err
	}
	s.dummyDigest = digest
	return digest, nil
}

// internalError logs cause with full detail and returns an error that
// carries none of it.
func (s *Service) internalError(ctx context.Context, operation, step string, cause error) error {
	errutil.LogErrorContext(ctx, s.logger, "auth operation failed",
		oops.With("operation", operation).With("step", step).Wrap(cause))
	return oops.Code(CodeInternal).
		With("operation", operation).
		Public(msgInternal).
		Wrap(ErrInternal)
}
