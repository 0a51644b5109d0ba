package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tome/internal/api"
	"tome/internal/logs"
	"tome/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var component string
	var requestID string
	var documentID int64
	var level string
	var search string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			apiClient, err := logs.NewStreamClient(cfg.Paths.APIBind)
			if err != nil {
				return err
			}

			var tail logstream.TailClient
			if client, dialErr := ctx.dialClient(); dialErr == nil {
				defer client.Close()
				tail = client
			}

			opts := logstream.Options{
				Lines:  lines,
				Follow: follow,
				Filters: logstream.Filters{
					Component:  component,
					RequestID:  requestID,
					DocumentID: documentID,
					Level:      level,
					Search:     search,
				},
			}

			out := cmd.OutOrStdout()
			printed, err := logstream.Stream(cmd.Context(), apiClient, tail, opts,
				func(evt api.LogEvent) { fmt.Fprintln(out, formatAPILogEvent(evt)) },
				func(line string) { fmt.Fprintln(out, line) },
			)
			if err != nil {
				if errors.Is(err, logstream.ErrFiltersRequireAPI) {
					return fmt.Errorf("log filters need the daemon HTTP API: %w", err)
				}
				if errors.Is(err, logs.ErrAPIUnavailable) {
					return errors.New("daemon logs unavailable; start the daemon with `tome start`")
				}
				return err
			}
			if !printed && !follow {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&component, "component", "", "Only events from this component")
	cmd.Flags().StringVar(&requestID, "request", "", "Only events for this request id")
	cmd.Flags().Int64Var(&documentID, "document", 0, "Only events for this document id")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&search, "search", "", "Only events whose message matches this text")
	return cmd
}

func formatAPILogEvent(evt api.LogEvent) string {
	ts := evt.Timestamp.Format("2006-01-02 15:04:05")
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	line := strings.Join(parts, " ")
	if subject := composeSubject(evt.DocumentID, evt.Stage); subject != "" {
		line += " " + subject
	}
	if message := strings.TrimSpace(evt.Message); message != "" {
		line += " - " + message
	}
	if len(evt.Details) == 0 {
		return line
	}
	builder := strings.Builder{}
	builder.WriteString(line)
	for _, detail := range evt.Details {
		if strings.TrimSpace(detail.Label) == "" || strings.TrimSpace(detail.Value) == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(detail.Label)
		builder.WriteString(": ")
		builder.WriteString(detail.Value)
	}
	return builder.String()
}

func composeSubject(documentID int64, stage string) string {
	stage = strings.TrimSpace(stage)
	switch {
	case documentID > 0 && stage != "":
		return fmt.Sprintf("Document #%d (%s)", documentID, stage)
	case documentID > 0:
		return fmt.Sprintf("Document #%d", documentID)
	default:
		return stage
	}
}
