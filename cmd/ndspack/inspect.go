// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/woozymasta/ndspack"
)

func newInspectCommand() *cobra.Command {
	var opts ndspack.ListOptions

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Describe one container file",
		Long:  "Classify a file and list container members without unpacking them.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := ndspack.ListMembers(args[0], opts)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}

			if printed, err := printJSON(cmd, info); printed || err != nil {
				return err
			}

			writeReport(cmd.OutOrStdout(), info)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "list only members whose name starts with prefix")
	cmd.Flags().IntVar(&opts.MinSize, "min-size", 0, "list only members with at least this many stored bytes")
	cmd.Flags().BoolVar(&opts.SkipEmpty, "skip-empty", false, "omit zero-length members")
	cmd.Flags().BoolVar(&opts.ASCIIOnly, "ascii-only", false, "omit members with non-ASCII names")

	return cmd
}

// writeReport prints a human-readable listing.
func writeReport(w io.Writer, info *ndspack.ContainerInfo) {
	fmt.Fprintf(w, "type: %s, size: %s\n", info.Type, humanize.Bytes(uint64(info.Size))) //nolint:gosec // non-negative
	if info.Variant != "" {
		fmt.Fprintf(w, "variant: %s, unpacked: %s\n", info.Variant, humanize.Bytes(uint64(info.Unpacked))) //nolint:gosec // non-negative
	}
	if info.Named {
		fmt.Fprintln(w, "named: true")
	}

	for _, m := range info.Members {
		flag := ""
		if m.Compressed {
			flag = " (lz)"
		}

		fmt.Fprintf(w, "%4d  b%d  %-12s %-8s %10s%s\n", m.Index, m.Bucket, m.Name, m.Type, humanize.Bytes(uint64(m.Size)), flag) //nolint:gosec // non-negative
	}
}
