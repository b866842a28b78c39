// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/accounts/internal/account"
	"github.com/holomush/accounts/internal/store"
)

var (
	container *postgres.PostgresContainer
	connStr   string
	pool      *pgxpool.Pool
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	container, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("accounts_test"),
		postgres.WithUsername("accounts"),
		postgres.WithPassword("accounts"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err = container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = store.Connect(ctx, connStr, store.DefaultConnectOptions())
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
})

var _ = Describe("Migrator", func() {
	It("reports the latest version with nothing pending", func() {
		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer migrator.Close()

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(dirty).To(BeFalse())
		Expect(version).To(Equal(uint(3)))

		pending, err := migrator.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})
})

var _ = Describe("AccountRepository", func() {
	var repo *store.AccountRepository
	ctx := context.Background()

	BeforeEach(func() {
		repo = store.NewAccountRepository(pool)
		_, err := pool.Exec(ctx, `DELETE FROM accounts`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("adds, finds and removes an account", func() {
		acct, err := repo.Add(ctx, account.NewAccount{Email: "Alice@Example.com", Username: "alice", PasswordHash: "HASH"})
		Expect(err).NotTo(HaveOccurred())

		found, err := repo.FindByEmail(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).NotTo(BeNil())
		Expect(found.ID).To(Equal(acct.ID))
		Expect(found.PasswordHash).To(Equal("HASH"))

		Expect(repo.Remove(ctx, acct.ID)).To(Succeed())

		found, err = repo.FindByEmail(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeNil())
	})

	It("rejects a duplicate email regardless of case", func() {
		_, err := repo.Add(ctx, account.NewAccount{Email: "bob@example.com", Username: "bob", PasswordHash: "H"})
		Expect(err).NotTo(HaveOccurred())

		_, err = repo.Add(ctx, account.NewAccount{Email: "BOB@example.com", Username: "bob2", PasswordHash: "H"})
		Expect(err).To(MatchError(account.ErrEmailTaken))
	})

	It("reports a missing account on remove", func() {
		Expect(repo.Remove(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")).To(MatchError(account.ErrNotFound))
	})
})

var _ = Describe("ResetTokenRepository", func() {
	var repo *store.ResetTokenRepository
	ctx := context.Background()

	BeforeEach(func() {
		repo = store.NewResetTokenRepository(pool)
		_, err := pool.Exec(ctx, `DELETE FROM password_reset_tokens`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("stores tokens by hash and removes them by email", func() {
		now := time.Now().UTC().Truncate(time.Microsecond)
		tok, err := account.NewPasswordResetToken("carol@example.com", now, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Add(ctx, tok)).To(Succeed())

		tokens, err := repo.FindByEmail(ctx, "carol@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(tokens).To(HaveLen(1))
		Expect(tokens[0].Token).To(Equal(store.HashResetToken(tok.Token)))
		Expect(tokens[0].ExpiresAt.Sub(tokens[0].IssuedAt)).To(Equal(time.Hour))

		Expect(repo.RemoveByEmail(ctx, "carol@example.com")).To(Succeed())
		tokens, err = repo.FindByEmail(ctx, "carol@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(tokens).To(BeEmpty())
	})

	It("purges expired tokens", func() {
		past := time.Now().Add(-2 * time.Hour)
		tok, err := account.NewPasswordResetToken("dave@example.com", past, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Add(ctx, tok)).To(Succeed())

		n, err := repo.DeleteExpired(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})
})
