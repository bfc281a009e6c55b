package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IyadElwy/AiBookSummarizer/internal/app"
	"github.com/IyadElwy/AiBookSummarizer/internal/config"
	"github.com/IyadElwy/AiBookSummarizer/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export completed summaries to a Parquet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.ExpandPath(strings.TrimSpace(outPath))
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				n, err := export.WriteFile(cmd.Context(), a.Store, target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d completed jobs to %s\n", n, target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "booksum-export.parquet", "Destination Parquet file")
	return cmd
}
