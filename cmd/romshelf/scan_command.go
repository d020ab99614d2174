package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"romshelf/internal/catalog"
	"romshelf/internal/library"
	"romshelf/internal/logging"
	"romshelf/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var platforms []string
	var noPurge bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Synchronize the catalog with the library directory",
		Long: "Scan walks <library>/<platform>/roms for every platform (or the ones named with --platform),\n" +
			"adds new files and directories to the catalog, and removes entries whose files are gone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			resolver, err := library.NewResolver(cfg.Paths.LibraryDir, cfg.Paths.ResourcesDir)
			if err != nil {
				return err
			}
			logger := logging.NewNop()
			if verbose {
				logger, err = logging.New(logging.Options{Level: "debug", Format: "console"})
				if err != nil {
					return err
				}
			}

			scanner := scan.NewScanner(store, resolver, cfg.Scan.Concurrency, logger)
			report, err := scanner.Scan(cmd.Context(), scan.Options{
				Platforms: platforms,
				Purge:     cfg.Scan.Purge && !noPurge,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}

			rows := make([][]string, 0, len(report.Platforms))
			for _, p := range report.Platforms {
				rows = append(rows, []string{
					p.FSSlug,
					strconv.Itoa(p.Roms),
					strconv.Itoa(p.Multi),
					formatSize(p.Bytes),
					strconv.FormatInt(p.Purged, 10),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Platform", "ROMs", "Multi", "Size", "Purged"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "Scanned %d ROMs (%s) across %d platforms in %s; purged %d\n",
				report.Roms(), formatSize(report.Bytes()), len(report.Platforms), report.Duration.Round(time.Millisecond), report.Purged())
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&platforms, "platform", nil, "Platform fs_slug to scan (repeatable)")
	cmd.Flags().BoolVar(&noPurge, "no-purge", false, "Keep catalog entries whose files are missing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log scan progress to stdout")
	return cmd
}
