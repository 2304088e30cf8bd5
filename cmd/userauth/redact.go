// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// maxLineSize bounds a single input line for redact.
const maxLineSize = 1 << 20

// NewRedactCmd creates the redact subcommand.
func NewRedactCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "redact",
		Short: "Mask PII fields in log lines read from stdin",
		Long: `Read "key=value" lines from stdin and write them to stdout with the
values of log.pii_fields replaced by log.redaction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			redactor := logOptions(cfg.Log).Redactor()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
			out := cmd.OutOrStdout()
			for scanner.Scan() {
				if _, err := fmt.Fprintln(out, redactor.Redact(scanner.Text())); err != nil {
					return oops.Code("REDACT_FAILED").With("operation", "write output").Wrap(err)
				}
			}
			if err := scanner.Err(); err != nil {
				return oops.Code("REDACT_FAILED").With("operation", "read input").Wrap(err)
			}
			return nil
		},
	}
}
