// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/woozymasta/ndspack"
)

func newPackCommand() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "pack <metadata-file> <unpacked-dir> <output-dir>",
		Short: "Rebuild containers from an unpacked tree",
		Long:  "Rebuild the original tree from an unpacked tree and its metadata document.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := commandLogger(cmd)
			if err != nil {
				return err
			}

			res, err := ndspack.PackDir(cmd.Context(), args[0], args[1], args[2], ndspack.PackOptions{
				Logger:     logger,
				MaxWorkers: workers,
			})
			if err != nil {
				return fmt.Errorf("pack %s: %w", args[1], err)
			}

			if printed, err := printJSON(cmd, res); printed || err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "packed %d files (%s) in %s\n",
				res.Files, humanize.Bytes(uint64(res.Bytes)), res.Duration.Round(time.Millisecond)) //nolint:gosec // non-negative
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", ndspack.DefaultMaxWorkers, "number of concurrently encoded files")

	return cmd
}
