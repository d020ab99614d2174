package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"romshelf/internal/api"
)

func newRomsCommand(ctx *commandContext) *cobra.Command {
	romsCmd := &cobra.Command{
		Use:   "roms",
		Short: "Inspect and manage catalog ROMs through romshelfd",
	}
	romsCmd.AddCommand(newRomsListCommand(ctx))
	romsCmd.AddCommand(newRomsShowCommand(ctx))
	romsCmd.AddCommand(newRomsDeleteCommand(ctx))
	return romsCmd
}

func newRomsListCommand(ctx *commandContext) *cobra.Command {
	var query api.ListRomsQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ROMs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			roms, err := c.ListRoms(cmd.Context(), query)
			if err != nil {
				server, _ := ctx.serverURL()
				return wrapRequestError(err, server)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, roms)
			}
			out := cmd.OutOrStdout()
			if len(roms) == 0 {
				fmt.Fprintln(out, "No ROMs found")
				return nil
			}
			rows := make([][]string, 0, len(roms))
			for _, rom := range roms {
				rows = append(rows, []string{
					formatID(rom.ID),
					truncate(rom.Name, 48),
					platformLabel(rom.PlatformName, rom.PlatformFSSlug),
					truncate(rom.FileName, 48),
					formatSize(rom.FileSizeBytes),
					yesNo(rom.Multi),
					mainMarker(rom),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name", "Platform", "File", "Size", "Multi", "Main"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().Int64Var(&query.PlatformID, "platform-id", 0, "Only list ROMs of this platform")
	cmd.Flags().StringVarP(&query.SearchTerm, "search", "s", "", "Case-insensitive substring of the name or file name")
	cmd.Flags().StringVar(&query.OrderBy, "order-by", "name", "Sort key: name or id")
	cmd.Flags().StringVar(&query.OrderDir, "order-dir", "asc", "Sort direction: asc or desc")
	cmd.Flags().IntVar(&query.Limit, "limit", 0, "Maximum number of ROMs (0 lists all)")
	return cmd
}

// mainMarker shows the main-sibling flag only for ROMs that have siblings.
func mainMarker(rom api.Rom) string {
	if rom.SiblingCount == 0 {
		return ""
	}
	if rom.IsMainSibling {
		return "main"
	}
	return fmt.Sprintf("+%d", rom.SiblingCount)
}

func newRomsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one ROM with its siblings and assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRomID(args[0])
			if err != nil {
				return err
			}
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			rom, err := c.GetRom(cmd.Context(), id)
			if err != nil {
				server, _ := ctx.serverURL()
				return wrapRequestError(err, server)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, rom)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ROM #%d: %s\n", rom.ID, rom.Name)
			fmt.Fprintf(out, "  Platform:   %s\n", platformLabel(rom.PlatformName, rom.PlatformFSSlug))
			fmt.Fprintf(out, "  Path:       %s\n", rom.FullPath)
			fmt.Fprintf(out, "  Size:       %s\n", formatSize(rom.FileSizeBytes))
			if rom.Multi {
				fmt.Fprintf(out, "  Files:      %s\n", strings.Join(rom.Files, ", "))
			}
			fmt.Fprintf(out, "  Cover:      %s\n", yesNo(rom.HasCover))
			fmt.Fprintf(out, "  Main:       %s\n", yesNo(rom.IsMainSibling))
			if rom.Summary != "" {
				fmt.Fprintf(out, "  Summary:    %s\n", truncate(rom.Summary, 120))
			}
			fmt.Fprintf(out, "  Assets:     %d saves, %d states, %d screenshots\n", len(rom.Saves), len(rom.States), len(rom.Screenshots))
			if len(rom.Siblings) > 0 {
				rows := make([][]string, 0, len(rom.Siblings))
				for _, sibling := range rom.Siblings {
					rows = append(rows, []string{formatID(sibling.ID), sibling.FileName, yesNo(sibling.IsMainSibling)})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Sibling", "Main"}, rows, []columnAlignment{alignRight}))
			}
			return nil
		},
	}
}

func newRomsDeleteCommand(ctx *commandContext) *cobra.Command {
	var fromFS bool

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete ROMs from the catalog (and optionally from disk)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseRomID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			req := api.DeleteRequest{Roms: ids, DeleteFromFS: []int64{}}
			if fromFS {
				req.DeleteFromFS = ids
			}

			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := c.DeleteRoms(cmd.Context(), req)
			if err != nil {
				server, _ := ctx.serverURL()
				return wrapRequestError(err, server)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}

			rows := make([][]string, 0, len(resp.Results))
			failed := 0
			for _, result := range resp.Results {
				if result.Error != "" {
					failed++
				}
				rows = append(rows, []string{formatID(result.ID), yesNo(result.Deleted), result.Error})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"ID", "Deleted", "Error"}, rows, []columnAlignment{alignRight}))
			fmt.Fprintf(out, "Deleted %d of %d ROMs\n", resp.Deleted, len(ids))
			if failed > 0 {
				return fmt.Errorf("%d of %d deletions reported errors", failed, len(ids))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromFS, "from-fs", false, "Also remove the ROM files from the library")
	return cmd
}

func parseRomID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("rom id must be a positive integer")
	}
	return id, nil
}
