// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package auth

import (
	"context"
	"runtime"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// hashLimiter bounds how many password hashes run at once so a burst of
// registrations cannot starve every other request of CPU.
// Waiting for a slot honours ctx; a hash that has started always completes.
type hashLimiter struct {
	hasher PasswordHasher
	sem    *semaphore.Weighted
	slots  int64
}

func newHashLimiter(hasher PasswordHasher, slots int) *hashLimiter {
	if slots <= 0 {
		slots = runtime.GOMAXPROCS(0)
	}
	return &hashLimiter{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(slots)),
		slots:  int64(slots),
	}
}

func (l *hashLimiter) hash(ctx context.Context, password string) (string, error) {
	if err := l.acquire(ctx, "hash"); err != nil {
		return "", err
	}
	defer l.sem.Release(1)

	start := time.Now()
	digest, err := l.hasher.Hash(password)
	recordHashDuration("hash", time.Since(start))
	return digest, err //nolint:wrapcheck // hasher errors already carry codes
}

func (l *hashLimiter) verify(ctx context.Context, password, digest string) (bool, error) {
	if err := l.acquire(ctx, "verify"); err != nil {
		return false, err
	}
	defer l.sem.Release(1)

	start := time.Now()
	ok := l.hasher.Verify(password, digest)
	recordHashDuration("verify", time.Since(start))
	return ok, nil
}

func (l *hashLimiter) acquire(ctx context.Context, op string) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return oops.Code("AUTH_HASH_SLOT_UNAVAILABLE").
			With("operation", op).
			With("slots", l.slots).
			Wrap(err)
	}
	return nil
}
