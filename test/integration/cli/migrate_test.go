// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"context"
	"os/exec"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

// userauth runs the CLI from source against the test database.
func userauth(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", append([]string{"run", "."}, args...)...)
	cmd.Dir = "../../../cmd/userauth"
	cmd.Env = append(cmd.Environ(), "DATABASE_URL="+env.connStr)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func tableExists(ctx context.Context, name string) bool {
	var exists bool
	err := env.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)", name,
	).Scan(&exists)
	Expect(err).NotTo(HaveOccurred())
	return exists
}

var _ = Describe("Migrate Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)
	})

	It("creates the users table and reports the version", func() {
		output, err := userauth(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)
		Expect(output).To(ContainSubstring("Applied 2 migration(s)"))
		Expect(tableExists(ctx, "users")).To(BeTrue())

		output, err = userauth(ctx, "migrate", "version")
		Expect(err).NotTo(HaveOccurred(), "migrate version failed: %s", output)
		Expect(output).To(ContainSubstring("Version 2: index_user_tokens"))
	})

	It("is idempotent", func() {
		output, err := userauth(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "first migrate up failed: %s", output)

		output, err = userauth(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "second migrate up failed: %s", output)
		Expect(output).To(ContainSubstring("No pending migrations"))
	})

	It("rolls everything back with down", func() {
		output, err := userauth(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)

		output, err = userauth(ctx, "migrate", "down")
		Expect(err).NotTo(HaveOccurred(), "migrate down failed: %s", output)
		Expect(output).To(ContainSubstring("Rolled back all migrations"))
		Expect(tableExists(ctx, "users")).To(BeFalse())
	})

	It("enforces unique emails at the database", func() {
		output, err := userauth(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)

		insert := "INSERT INTO users (id, email, hashed_password) VALUES ($1, $2, 'x')"
		_, err = env.pool.Exec(ctx, insert, "01A", "dup@example.com")
		Expect(err).NotTo(HaveOccurred())
		_, err = env.pool.Exec(ctx, insert, "01B", "dup@example.com")
		Expect(err).To(HaveOccurred())
	})
})
