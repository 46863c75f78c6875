// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/woozymasta/ndspack"
)

// newRootCommand builds the command tree.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ndspack",
		Short: "Unpack and rebuild Nintendo DS container trees",
		Long: `ndspack unpacks P2, HPAK, PK2D, PKAC and LZ containers found in a game data
tree into plain files plus a metadata document, and rebuilds byte-identical
containers from them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-level", "warn", "log level (trace, debug, info, warn, error, disabled)")
	cmd.PersistentFlags().Bool("json", false, "print result as JSON")

	cmd.AddCommand(newExtractCommand())
	cmd.AddCommand(newPackCommand())
	cmd.AddCommand(newVerifyCommand())
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// Execute runs the root command and exits nonzero on failure.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  `Print the version number of ndspack`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ndspack version %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// commandLogger builds a logger from the --log-level flag writing to stderr of cmd.
func commandLogger(cmd *cobra.Command) (*zerolog.Logger, error) {
	raw, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}

	level, err := ndspack.ParseLogLevel(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", raw, err)
	}

	logger := ndspack.NewLogger(cmd.ErrOrStderr(), level)
	return &logger, nil
}

// printJSON writes v as indented JSON when --json is set and reports whether it did.
func printJSON(cmd *cobra.Command, v any) (bool, error) {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil || !asJSON {
		return false, err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
