package commands

import (
	"context"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kbukum/querykit/component"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured components and their health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				rows := componentRows(ctx, s.app.Components)
				return c.render(cmd.OutOrStdout(), rows, func() *table.Table { return statusTable(rows) })
			})
		},
	}
}

func componentRows(ctx context.Context, r *component.Registry) []componentRow {
	descriptions := r.Describe()
	health := r.HealthAll(ctx)
	rows := make([]componentRow, 0, len(descriptions))
	for i, d := range descriptions {
		row := componentRow{Description: d}
		if i < len(health) {
			row.Health = health[i]
		}
		rows = append(rows, row)
	}
	return rows
}
