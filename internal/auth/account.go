// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Password constraints.
const (
	MinPasswordLength = 6
	// MaxPasswordBytes is bcrypt's input limit; longer input is rejected, not truncated.
	MaxPasswordBytes = 72
)

// emailRegex is a syntactic check only: something@something.tld with no spaces.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Account represents a registered user. Accounts are never mutated by this
// package once created.
type Account struct {
	ID             ulid.ULID
	Email          string
	PasswordDigest string
	FirstName      string
	LastName       *string
	Phone          *string
	CreatedAt      time.Time
}

// PublicAccount is the projection of an Account returned to callers.
// It never carries the password digest.
type PublicAccount struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  *string   `json:"lastName"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAccount creates a validated Account with a fresh ID.
// lastName and phone are optional; empty values are stored as nil.
func NewAccount(email, passwordDigest, firstName string, lastName, phone *string, createdAt time.Time) (*Account, error) {
	if email == "" {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordDigest == "" {
		return nil, oops.Code("ACCOUNT_INVALID_DIGEST").Errorf("password digest cannot be empty")
	}
	if firstName == "" {
		return nil, oops.Code("ACCOUNT_INVALID_FIRST_NAME").Errorf("first name cannot be empty")
	}
	if createdAt.IsZero() {
		return nil, oops.Code("ACCOUNT_INVALID_CREATED_AT").Errorf("creation time cannot be zero")
	}

	return &Account{
		ID:             ulid.Make(),
		Email:          email,
		PasswordDigest: passwordDigest,
		FirstName:      firstName,
		LastName:       optional(lastName),
		Phone:          optional(phone),
		CreatedAt:      createdAt,
	}, nil
}

// Public returns the caller-facing projection of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:        a.ID.String(),
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		CreatedAt: a.CreatedAt,
	}
}

// RegisterRequest carries the input of Service.Register.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  *string
	Phone     *string
}

// Validate checks the request shape. It runs before any hashing or store access.
func (r RegisterRequest) Validate() error {
	if r.Email == "" {
		return validationError("email", "email is required")
	}
	if r.Password == "" {
		return validationError("password", "password is required")
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return validationError("firstName", "first name is required")
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}

// ValidateEmail performs a basic syntactic check of an email address.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return validationError("email", "email address is not valid")
	}
	return nil
}

// ValidatePassword checks password length rules for new passwords.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return validationError("password", "password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return validationError("password", "password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

func optional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account.
	// Returns an error wrapping ErrDuplicateAccount if the email is taken.
	// The uniqueness check and insert are atomic.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-sensitive).
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Delete removes an account.
	Delete(ctx context.Context, id ulid.ULID) error
}
