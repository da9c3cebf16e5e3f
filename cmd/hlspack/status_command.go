package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"hlspack/internal/config"
	"hlspack/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the conversion ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				items, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}

				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						fmt.Sprintf("%d", item.ID),
						filepath.Base(item.SourcePath),
						colorizeStatus(item.Status, colorize),
						item.ProgressStage,
						fmt.Sprintf("%.0f%%", item.ProgressPercent),
						statusDetail(item),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "File", "Status", "Stage", "Progress", "Detail"},
					rows,
					1, 5,
				))
				return nil
			})
		},
	}
}

func statusDetail(item *queue.Item) string {
	if item.Status == queue.StatusFailed && item.ErrorMessage != "" {
		return item.ErrorMessage
	}
	return item.ProgressMessage
}
