package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tome/internal/api"
	"tome/internal/catalogaccess"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <documentID>",
		Short: "Show full details for one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseDocumentIDs(args)
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access catalogaccess.Access) error {
				doc, err := access.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, doc)
				}
				printDocumentDetail(cmd, doc)
				return nil
			})
		},
	}
}

func printDocumentDetail(cmd *cobra.Command, doc *api.Document) {
	if doc == nil {
		return
	}
	out := cmd.OutOrStdout()

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(out, "Document #%d: %s\n", doc.ID, title)
	fmt.Fprintf(out, "  Status:   %s\n", formatStatusLabel(doc.Status))
	fmt.Fprintf(out, "  Source:   %s\n", doc.SourcePath)
	if doc.StagedPath != "" {
		fmt.Fprintf(out, "  Staged:   %s\n", doc.StagedPath)
	}
	if doc.DocClass != "" {
		fmt.Fprintf(out, "  Class:    %s (%.2f)\n", doc.DocClass, doc.ClassConfidence)
	}
	if doc.PageCount > 0 {
		fmt.Fprintf(out, "  Pages:    %d\n", doc.PageCount)
	}
	if doc.ContentHash != "" {
		fmt.Fprintf(out, "  Hash:     %s\n", formatHash(doc.ContentHash))
	}
	if doc.RequestID != "" {
		fmt.Fprintf(out, "  Request:  %s\n", doc.RequestID)
	}
	if doc.CreatedAt != "" {
		fmt.Fprintf(out, "  Created:  %s\n", formatDisplayTime(doc.CreatedAt))
	}
	if doc.UpdatedAt != "" {
		fmt.Fprintf(out, "  Updated:  %s\n", formatDisplayTime(doc.UpdatedAt))
	}
	if doc.CompletedAt != "" {
		fmt.Fprintf(out, "  Finished: %s\n", formatDisplayTime(doc.CompletedAt))
	}
	if doc.NeedsReview {
		reason := strings.TrimSpace(doc.ReviewReason)
		if reason == "" {
			reason = "unspecified"
		}
		fmt.Fprintf(out, "  Review:   needed (%s)\n", reason)
	}
	if doc.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:    %s\n", doc.ErrorMessage)
	}

	if len(doc.Stages) == 0 {
		return
	}
	rows := make([][]string, 0, len(doc.Stages))
	for _, stage := range doc.Stages {
		rows = append(rows, []string{
			stage.Name,
			formatStatusLabel(stage.Result),
			fmt.Sprintf("%d", stage.Attempts),
			formatDisplayTime(stage.UpdatedAt),
			stage.LastError,
		})
	}
	fmt.Fprintln(out)
	table := renderTable(
		[]string{"Stage", "Result", "Attempts", "Updated", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
	fmt.Fprint(out, table)
}
