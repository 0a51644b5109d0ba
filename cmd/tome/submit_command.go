package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tome/internal/api"
	"tome/internal/catalog"
	"tome/internal/ipc"
	"tome/internal/logging"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "submit <path>",
		Short: "Submit a document for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}

			doc, outcome, err := submitDocument(cmd, ctx, absPath, title)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"document": doc,
					"outcome":  outcome,
				})
			}
			printSubmitOutcome(cmd, doc, outcome, absPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Override the document title")
	return cmd
}

// submitDocument routes through the daemon when reachable so the workflow
// wakes immediately, otherwise records the submission directly.
func submitDocument(cmd *cobra.Command, ctx *commandContext, absPath, title string) (api.Document, string, error) {
	if client, err := ipc.Dial(ctx.socketPath()); err == nil {
		defer client.Close()
		resp, submitErr := client.Submit(absPath, title)
		if submitErr != nil {
			return api.Document{}, "", submitErr
		}
		if resp == nil {
			return api.Document{}, "", errors.New("empty response from daemon")
		}
		return resp.Document, resp.Outcome, nil
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.Document{}, "", err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return api.Document{}, "", err
	}
	defer store.Close()

	result, err := api.SubmitDocument(cmd.Context(), api.SubmitDocumentRequest{
		Config:     cfg,
		Store:      store,
		Logger:     logging.NewNop(),
		SourcePath: absPath,
		Title:      title,
	})
	if err != nil {
		return api.Document{}, "", err
	}
	return api.FromDocument(result.Document), string(result.Outcome), nil
}

func printSubmitOutcome(cmd *cobra.Command, doc api.Document, outcome, absPath string) {
	out := cmd.OutOrStdout()
	name := filepath.Base(absPath)
	switch strings.TrimSpace(outcome) {
	case string(api.SubmitAlreadyQueued):
		fmt.Fprintf(out, "Document #%d (%s) is already queued\n", doc.ID, name)
	case string(api.SubmitUnchanged):
		fmt.Fprintf(out, "Document #%d (%s) already processed; content unchanged\n", doc.ID, name)
	case string(api.SubmitRequeued):
		fmt.Fprintf(out, "Requeued document #%d (%s) with changed content\n", doc.ID, name)
	default:
		fmt.Fprintf(out, "Queued document #%d (%s)\n", doc.ID, name)
	}
}
