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
	"github.com/woozymasta/pathrules"
)

func newExtractCommand() *cobra.Command {
	var (
		workers        int
		poll           time.Duration
		skip           []string
		only           []string
		fallbackOpaque bool
	)

	cmd := &cobra.Command{
		Use:   "extract <input-dir> <output-dir> <metadata-file>",
		Short: "Unpack every container below a directory",
		Long: `Walk input-dir, unpack every recognized container into output-dir, and write the
metadata document needed to rebuild it. The document is YAML unless its name
ends in .json.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := commandLogger(cmd)
			if err != nil {
				return err
			}

			opts := ndspack.ExtractOptions{
				Logger:         logger,
				MaxWorkers:     workers,
				PollInterval:   poll,
				FallbackOpaque: fallbackOpaque,
				Unpack:         unpackRules(skip, only),
			}
			if len(only) > 0 {
				opts.UnpackMatcherOptions = pathrules.MatcherOptions{
					CaseInsensitive: true,
					DefaultAction:   pathrules.ActionExclude,
				}
			}

			res, err := ndspack.ExtractDir(cmd.Context(), args[0], args[1], args[2], opts)
			if res != nil {
				for _, f := range res.Failures {
					logger.Error().Err(f.Err).Str("path", f.Path).Msg("unpack failed")
				}
			}
			if err != nil {
				return fmt.Errorf("extract %s: %w", args[0], err)
			}

			if printed, err := printJSON(cmd, res); printed || err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files (%s) from %d containers in %s\n",
				res.Files, humanize.Bytes(uint64(res.Bytes)), res.Containers, res.Duration.Round(time.Millisecond)) //nolint:gosec // non-negative
			if res.Fallbacks > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d undecodable containers stored as files\n", res.Fallbacks)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", ndspack.DefaultMaxWorkers, "number of container workers")
	cmd.Flags().DurationVar(&poll, "poll", ndspack.DefaultPollInterval, "idle worker poll interval")
	cmd.Flags().StringArrayVar(&skip, "skip", nil, "path pattern of containers to keep packed (repeatable)")
	cmd.Flags().StringArrayVar(&only, "only", nil, "path pattern of containers to unpack; others stay packed (repeatable)")
	cmd.Flags().BoolVar(&fallbackOpaque, "fallback-opaque", false, "store undecodable containers as plain files")

	return cmd
}

// unpackRules converts --only and --skip patterns to ordered rules; skips win.
func unpackRules(skip, only []string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(skip)+len(only))
	for _, pattern := range only {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
	}
	for _, pattern := range skip {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern})
	}

	return rules
}
