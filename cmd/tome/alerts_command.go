package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tome/internal/api"
	"tome/internal/catalogaccess"
)

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect the alert outbox",
	}

	alertsCmd.AddCommand(newAlertsListCommand(ctx))

	return alertsCmd
}

func newAlertsListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued and delivered alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access catalogaccess.Access) error {
				alerts, err := access.Alerts(cmd.Context(), status, limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if alerts == nil {
						alerts = []api.Alert{}
					}
					return writeJSON(cmd, map[string]any{"alerts": alerts})
				}
				if len(alerts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No alerts")
					return nil
				}
				rows := make([][]string, 0, len(alerts))
				for _, alert := range alerts {
					document := "-"
					if alert.DocumentID > 0 {
						document = fmt.Sprintf("%d", alert.DocumentID)
					}
					rows = append(rows, []string{
						formatHash(alert.ID),
						formatStatusLabel(alert.Severity),
						alert.Event,
						document,
						formatStatusLabel(alert.Status),
						fmt.Sprintf("%d", alert.Attempts),
						formatDisplayTime(alert.CreatedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "Severity", "Event", "Document", "Status", "Attempts", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by alert status (pending, sent, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of alerts to list")
	return cmd
}
