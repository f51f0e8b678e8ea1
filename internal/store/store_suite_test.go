// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// databaseURL points at the container shared by the whole suite.
var databaseURL string

func TestStoreIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Integration Suite")
}

var _ = BeforeSuite(func(ctx SpecContext) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("holoauth_test"),
		postgres.WithUsername("holoauth"),
		postgres.WithPassword("holoauth"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() {
		_ = container.Terminate(context.Background())
	})

	databaseURL, err = container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())
}, NodeTimeout(2*time.Minute))
