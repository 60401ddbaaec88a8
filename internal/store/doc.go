// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

// Package store owns the PostgreSQL schema and connection setup.
//
// Schema changes live in migrations/ as numbered golang-migrate files and are
// embedded into the binary. Repositories that query the schema live next to
// the domain they serve (see internal/auth/postgres).
package store
