// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

// Package auth provides credential custody, password verification and
// session issuance for SafeConnect.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewAccount - creates an Account with a validated email, digest and first name
//   - NewSession - creates a Session bound to an account with a fixed expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Sessions
//
// A session credential is an HS256 JWT carrying the account and session ids
// and an expiry. Only its SHA-256 hash is stored. A credential is accepted only
// while its row exists in the SessionRepository, so deleting the row revokes
// it even though the signature would still verify.
//
// # Services
//
// Service coordinates Register, Login, Logout and GetCurrentAccount. Every
// error it returns wraps one of the Err* kind sentinels; use KindOf to
// classify and PublicMessage to render it for end users.
package auth
