// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/woozymasta/ndspack"
)

// errVerifyFailed is returned when the rebuilt tree differs from the original.
var errVerifyFailed = errors.New("rebuilt tree differs from original")

func newVerifyCommand() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "verify <input-dir> <unpacked-dir> <metadata-file>",
		Short: "Check that an unpacked tree rebuilds the original bytes",
		Long: `Rebuild every file in memory and compare its XXH3 digest with the matching file
in input-dir. Nothing is written.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := commandLogger(cmd)
			if err != nil {
				return err
			}

			res, err := ndspack.VerifyDir(cmd.Context(), args[0], args[1], args[2], ndspack.PackOptions{
				Logger:     logger,
				MaxWorkers: workers,
			})
			if err != nil {
				return fmt.Errorf("verify %s: %w", args[0], err)
			}

			printed, err := printJSON(cmd, res)
			if err != nil {
				return err
			}

			if !printed {
				out := cmd.OutOrStdout()
				for _, m := range res.Mismatches {
					fmt.Fprintf(out, "mismatch %s: want %s %016x, got %s %016x\n", m.Path,
						humanize.Bytes(uint64(m.Want.Size)), m.Want.Sum, humanize.Bytes(uint64(m.Got.Size)), m.Got.Sum) //nolint:gosec // non-negative
				}
				for _, p := range res.Missing {
					fmt.Fprintf(out, "missing %s\n", p)
				}
				for _, p := range res.Extra {
					fmt.Fprintf(out, "extra %s\n", p)
				}
				fmt.Fprintf(out, "%d files match (%s)\n", res.Matched, humanize.Bytes(uint64(res.Bytes))) //nolint:gosec // non-negative
			}

			if !res.OK() {
				return errVerifyFailed
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", ndspack.DefaultMaxWorkers, "number of concurrently encoded files")

	return cmd
}
