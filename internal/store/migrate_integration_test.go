// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/holoauth/internal/store"
)

func tableExists(ctx context.Context, pool *pgxpool.Pool, name string) bool {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
		name).Scan(&exists)
	Expect(err).NotTo(HaveOccurred())
	return exists
}

var _ = Describe("Migrator", func() {
	var (
		ctx      context.Context
		pool     *pgxpool.Pool
		migrator *store.Migrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		pool, err = store.ConnectPostgres(ctx, databaseURL, store.DefaultRetryPolicy(), nil)
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(databaseURL)
		Expect(err).NotTo(HaveOccurred())

		DeferCleanup(func() {
			Expect(migrator.Down()).To(Succeed())
			_ = migrator.Close()
			pool.Close()
		})
	})

	It("starts at version zero with everything pending", func() {
		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Version).To(BeZero())
		Expect(st.Pending).To(Equal([]uint{1, 2}))
		Expect(st.Latest).To(Equal(uint(2)))
	})

	It("creates and drops the auth tables", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(tableExists(ctx, pool, "credentials")).To(BeTrue())
		Expect(tableExists(ctx, pool, "sessions")).To(BeTrue())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(dirty).To(BeFalse())

		Expect(migrator.Steps(-1)).To(Succeed())
		Expect(tableExists(ctx, pool, "sessions")).To(BeFalse())
		Expect(tableExists(ctx, pool, "credentials")).To(BeTrue())

		Expect(migrator.Down()).To(Succeed())
		Expect(tableExists(ctx, pool, "credentials")).To(BeFalse())
	})

	It("treats a second Up as a no-op", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Up()).To(Succeed())

		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Pending).To(BeEmpty())
	})

	It("recovers a dirty database with Force", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Force(1)).To(Succeed())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(dirty).To(BeFalse())

		Expect(migrator.Force(2)).To(Succeed())
	})
})
