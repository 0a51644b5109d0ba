package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tome/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test alert to the configured webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return fmt.Errorf("test notification failed: %w", err)
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}

				out := cmd.OutOrStdout()
				if resp.Message != "" {
					fmt.Fprintln(out, resp.Message)
				}
				if resp.Sent {
					fmt.Fprintln(out, "Test notification sent")
				} else {
					fmt.Fprintln(out, "Notification not sent")
				}
				return nil
			})
		},
	}
}
