// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/safeconnect/safeconnect/internal/auth"
	"github.com/safeconnect/safeconnect/internal/auth/postgres"
)

func newAccount(email string) *auth.Account {
	phone := "555-0100"
	a, err := auth.NewAccount(email, "digest", "Ada", nil, &phone, time.Now().UTC().Truncate(time.Microsecond))
	Expect(err).NotTo(HaveOccurred())
	return a
}

func newSession(accountID ulid.ULID, token string, issued time.Time) *auth.Session {
	s, err := auth.NewSession(ulid.Make(), accountID, auth.HashSessionToken(token), issued, issued.Add(time.Hour))
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("AccountRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.AccountRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewAccountRepository(testPool)
	})

	It("round-trips an account", func() {
		account := newAccount("ada@example.com")
		Expect(repo.Create(ctx, account)).To(Succeed())

		byID, err := repo.GetByID(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Email).To(Equal(account.Email))
		Expect(byID.LastName).To(BeNil())
		Expect(*byID.Phone).To(Equal("555-0100"))
		Expect(byID.CreatedAt.Equal(account.CreatedAt)).To(BeTrue())

		byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(byEmail.ID).To(Equal(account.ID))
	})

	It("treats email lookups as case-sensitive", func() {
		Expect(repo.Create(ctx, newAccount("ada@example.com"))).To(Succeed())
		_, err := repo.GetByEmail(ctx, "ADA@example.com")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("rejects a duplicate email", func() {
		Expect(repo.Create(ctx, newAccount("ada@example.com"))).To(Succeed())
		err := repo.Create(ctx, newAccount("ada@example.com"))
		Expect(err).To(MatchError(auth.ErrDuplicateAccount))
	})

	It("lets exactly one concurrent create win", func() {
		const workers = 10
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
			dups int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				err := repo.Create(ctx, newAccount("race@example.com"))
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					wins++
				} else {
					Expect(err).To(MatchError(auth.ErrDuplicateAccount))
					dups++
				}
			}()
		}
		wg.Wait()
		Expect(wins).To(Equal(1))
		Expect(dups).To(Equal(workers - 1))
	})

	It("reports a missing account", func() {
		_, err := repo.GetByID(ctx, ulid.Make())
		Expect(err).To(MatchError(auth.ErrNotFound))
		Expect(repo.Delete(ctx, ulid.Make())).To(MatchError(auth.ErrNotFound))
	})
})

var _ = Describe("SessionRepository", func() {
	var (
		ctx      context.Context
		accounts *postgres.AccountRepository
		sessions *postgres.SessionRepository
		account  *auth.Account
	)

	BeforeEach(func() {
		ctx = context.Background()
		accounts = postgres.NewAccountRepository(testPool)
		sessions = postgres.NewSessionRepository(testPool)
		account = newAccount("ada@example.com")
		Expect(accounts.Create(ctx, account)).To(Succeed())
	})

	It("stores and finds a session by token hash", func() {
		issued := time.Now().UTC().Truncate(time.Second)
		s := newSession(account.ID, "tok-1", issued)
		Expect(sessions.Create(ctx, s)).To(Succeed())

		got, err := sessions.GetByTokenHash(ctx, s.TokenHash)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(s.ID))
		Expect(got.AccountID).To(Equal(account.ID))
		Expect(got.ExpiresAt.Equal(s.ExpiresAt)).To(BeTrue())
	})

	It("rejects a session for an unknown account", func() {
		s := newSession(ulid.Make(), "tok-orphan", time.Now().UTC())
		Expect(sessions.Create(ctx, s)).NotTo(Succeed())
	})

	It("deletes idempotently", func() {
		s := newSession(account.ID, "tok-2", time.Now().UTC())
		Expect(sessions.Create(ctx, s)).To(Succeed())

		removed, err := sessions.DeleteByTokenHash(ctx, s.TokenHash)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeTrue())

		removed, err = sessions.DeleteByTokenHash(ctx, s.TokenHash)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeFalse())

		_, err = sessions.GetByTokenHash(ctx, s.TokenHash)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("purges sessions expired at or before now", func() {
		base := time.Now().UTC().Truncate(time.Second)
		Expect(sessions.Create(ctx, newSession(account.ID, "old", base.Add(-2*time.Hour)))).To(Succeed())
		Expect(sessions.Create(ctx, newSession(account.ID, "edge", base.Add(-time.Hour)))).To(Succeed())
		Expect(sessions.Create(ctx, newSession(account.ID, "live", base))).To(Succeed())

		n, err := sessions.DeleteExpired(ctx, base)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))

		_, err = sessions.GetByTokenHash(ctx, auth.HashSessionToken("live"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("removes sessions when the account is deleted", func() {
		s := newSession(account.ID, "tok-3", time.Now().UTC())
		Expect(sessions.Create(ctx, s)).To(Succeed())

		Expect(accounts.Delete(ctx, account.ID)).To(Succeed())
		_, err := sessions.GetByTokenHash(ctx, s.TokenHash)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("deletes every session of an account", func() {
		now := time.Now().UTC()
		Expect(sessions.Create(ctx, newSession(account.ID, "a", now))).To(Succeed())
		Expect(sessions.Create(ctx, newSession(account.ID, "b", now))).To(Succeed())

		n, err := sessions.DeleteByAccount(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))
	})
})
