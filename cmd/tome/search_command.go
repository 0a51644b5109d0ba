package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tome/internal/api"
	"tome/internal/catalogaccess"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <term...>",
		Short: "Search indexed document text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access catalogaccess.Access) error {
				hits, err := access.Search(cmd.Context(), args, limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if hits == nil {
						hits = []api.SearchHit{}
					}
					return writeJSON(cmd, map[string]any{"hits": hits})
				}
				if len(hits) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches")
					return nil
				}
				rows := make([][]string, 0, len(hits))
				for _, hit := range hits {
					rows = append(rows, []string{
						fmt.Sprintf("%d", hit.DocumentID),
						hit.Title,
						formatStatusLabel(hit.DocClass),
						fmt.Sprintf("%.3f", hit.Score),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Class", "Score"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of results")
	return cmd
}
