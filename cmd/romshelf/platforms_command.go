package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPlatformsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List platforms with their ROM counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			platforms, err := c.Platforms(cmd.Context())
			if err != nil {
				server, _ := ctx.serverURL()
				return wrapRequestError(err, server)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, platforms)
			}
			rows := make([][]string, 0, len(platforms))
			for _, p := range platforms {
				rows = append(rows, []string{formatID(p.ID), platformLabel(p.Name, p.FSSlug), p.FSSlug, strconv.FormatInt(p.RomCount, 10)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Platform", "Folder", "ROMs"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
