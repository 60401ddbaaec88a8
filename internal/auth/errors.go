// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Failure kinds. Every error returned by Service wraps exactly one of these,
// so callers classify with errors.Is or KindOf.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
	ErrAccountNotFound    = errors.New("account not found")
	ErrMissingCredential  = errors.New("missing session credential")
	ErrInternal           = errors.New("internal error")
)

// Kind names a failure category of the auth service.
type Kind string

// Failure kinds as reported by KindOf.
const (
	KindValidation         Kind = "validation"
	KindDuplicateAccount   Kind = "duplicate_account"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindInvalidSession     Kind = "invalid_session"
	KindAccountNotFound    Kind = "account_not_found"
	KindMissingCredential  Kind = "missing_credential"
	KindInternal           Kind = "internal"
)

// Error codes attached to service errors.
const (
	CodeValidation         = "AUTH_VALIDATION"
	CodeDuplicateAccount   = "AUTH_DUPLICATE_ACCOUNT"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidSession     = "SESSION_INVALID"
	CodeAccountNotFound    = "AUTH_ACCOUNT_NOT_FOUND"
	CodeMissingCredential  = "SESSION_CREDENTIAL_MISSING"
	CodeInternal           = "AUTH_INTERNAL"
)

// Public messages shown to end users. Internal detail never reaches these.
const (
	msgDuplicateAccount   = "Email already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidSession     = "Session is no longer valid, please sign in again"
	msgMissingCredential  = "No token provided"
	msgInternal           = "Something went wrong"
)

var defaultPublicMessages = map[Kind]string{
	KindValidation:         "Invalid request",
	KindDuplicateAccount:   msgDuplicateAccount,
	KindInvalidCredentials: msgInvalidCredentials,
	KindInvalidSession:     msgInvalidSession,
	KindAccountNotFound:    msgInvalidSession,
	KindMissingCredential:  msgMissingCredential,
	KindInternal:           msgInternal,
}

// KindOf classifies err. Errors that do not wrap a known kind are internal.
// Returns the empty Kind for a nil error.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrDuplicateAccount):
		return KindDuplicateAccount
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrInvalidSession):
		return KindInvalidSession
	case errors.Is(err, ErrAccountNotFound):
		return KindAccountNotFound
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	default:
		return KindInternal
	}
}

// PublicMessage returns a short message for err that is safe to show to an end user.
func PublicMessage(err error) string {
	kind := KindOf(err)
	if kind == KindInternal {
		return msgInternal
	}
	return oops.GetPublic(err, defaultPublicMessages[kind])
}

func validationError(field, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return oops.Code(CodeValidation).
		With("field", field).
		Public(msg).
		Wrapf(ErrValidation, "%s", msg)
}

func duplicateAccountError() error {
	return oops.Code(CodeDuplicateAccount).
		Public(msgDuplicateAccount).
		Wrap(ErrDuplicateAccount)
}

func invalidCredentialsError() error {
	return oops.Code(CodeInvalidCredentials).
		Public(msgInvalidCredentials).
		Wrap(ErrInvalidCredentials)
}

func invalidSessionError(reason string) error {
	return oops.Code(CodeInvalidSession).
		With("reason", reason).
		Public(msgInvalidSession).
		Wrap(ErrInvalidSession)
}

func accountNotFoundError(accountID string) error {
	return oops.Code(CodeAccountNotFound).
		With("account_id", accountID).
		Public(msgInvalidSession).
		Wrap(ErrAccountNotFound)
}

func missingCredentialError() error {
	return oops.Code(CodeMissingCredential).
		Public(msgMissingCredential).
		Wrap(ErrMissingCredential)
}
