// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/userauth/internal/auth"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	var verify string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `Read a password from the first line of stdin and print its argon2id hash.
With --verify, check the password against an existing hash instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return oops.Code("HASH_INPUT_FAILED").Errorf("no password on stdin")
			}
			password := strings.TrimRight(line, "\r\n")

			hasher := auth.NewArgon2idHasher()
			if verify != "" {
				ok, err := hasher.Verify(password, verify)
				if err != nil {
					return err
				}
				if !ok {
					return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(auth.ErrInvalidCredentials)
				}
				cmd.Println("ok")
				return nil
			}

			hash, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			cmd.Println(hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&verify, "verify", "", "hash to check the password against")
	return cmd
}
