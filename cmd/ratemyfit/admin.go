package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hurttlocker/ratemyfit/internal/store"
)

func seedCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Load whitelist, taxonomy and catalog reference data (default: built-in seed)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			var report store.SeedReport
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				report, err = a.store.LoadSeed(cmd.Context(), f)
				if err != nil {
					return err
				}
			} else {
				report, err = a.store.LoadDefaultSeed(cmd.Context())
				if err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d whitelist, %d taxonomy, %d catalog rows\n",
				report.Whitelist, report.Taxonomy, report.Catalog)
			return nil
		},
	}
}

func syncWhitelistCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-whitelist",
		Short: "Refresh the garment whitelist from the taxonomy table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.store.SyncWhitelist(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("whitelist synced",
				"inserted", report.Inserted, "updated", report.Updated, "removed", report.Removed, "skipped", len(report.Skipped))
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func statsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store row counts and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func configCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := resolve(opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg.Redacted())
		},
	}
}
