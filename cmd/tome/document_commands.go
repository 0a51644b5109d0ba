package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tome/internal/api"
	"tome/internal/catalog"
	"tome/internal/catalogaccess"
	"tome/internal/ipc"
	"tome/internal/logging"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access catalogaccess.Access) error {
				docs, err := access.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if docs == nil {
						docs = []api.Document{}
					}
					return writeJSON(cmd, map[string]any{"documents": api.SortDocumentsNewestFirst(docs)})
				}
				if len(docs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Class", "Created", "Hash"},
					buildDocumentListRows(docs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by document status (repeatable)")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [documentID...]",
		Short: "Retry failed documents",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseDocumentIDs(args)
			if err != nil {
				return err
			}

			return ctx.withAccess(func(access catalogaccess.Access) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := access.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"updated": updated})
					}
					fmt.Fprintf(out, "Retried %d failed documents\n", updated)
					return nil
				}

				result, err := api.RetryFailedDocumentsByID(cmd.Context(), accessActionService{access}, ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.RetryDocumentUpdated:
						fmt.Fprintf(out, "Document %d reset for retry\n", item.ID)
					case api.RetryDocumentNotFound:
						fmt.Fprintf(out, "Document %d not found\n", item.ID)
					default:
						fmt.Fprintf(out, "Document %d is not in failed state\n", item.ID)
					}
				}
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <documentID...>",
		Short: "Remove documents from the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseDocumentIDs(args)
			if err != nil {
				return err
			}

			return ctx.withAccess(func(access catalogaccess.Access) error {
				result, err := api.RemoveDocumentsByID(cmd.Context(), accessActionService{access}, ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				for _, item := range result.Items {
					if item.Outcome == api.RemoveDocumentRemoved {
						fmt.Fprintf(out, "Removed document %d\n", item.ID)
					} else {
						fmt.Fprintf(out, "Document %d not found\n", item.ID)
					}
				}
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove catalog documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withAccess(func(access catalogaccess.Access) error {
				var removed int64
				var err error
				var label string
				switch {
				case clearCompleted:
					removed, err = access.ClearCompleted(cmd.Context())
					label = "completed documents"
				case clearFailed:
					removed, err = access.ClearFailed(cmd.Context())
					label = "failed documents"
				default:
					removed, err = access.ClearAll(cmd.Context())
					label = "documents"
				}
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed documents")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed documents")
	return cmd
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run catalog maintenance (reclaim stale work, expire locks, prune staging)",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runSweep(cmd.Context(), ctx)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reclaimed %d stale documents\n", result.DocumentsReclaimed)
			fmt.Fprintf(out, "Expired %d advisory locks\n", result.LocksExpired)
			fmt.Fprintf(out, "Removed %d orphaned workspaces\n", len(result.WorkspacesRemoved))
			fmt.Fprintf(out, "Purged %d sent alerts\n", result.AlertsPurged)
			return nil
		},
	}
}

// runSweep asks the daemon to sweep when reachable, otherwise runs the
// maintenance pass directly against the catalog.
func runSweep(cmdCtx context.Context, ctx *commandContext) (api.SweepCatalogResult, error) {
	if client, err := ipc.Dial(ctx.socketPath()); err == nil {
		defer client.Close()
		resp, sweepErr := client.Sweep()
		if sweepErr != nil {
			return api.SweepCatalogResult{}, sweepErr
		}
		return api.SweepCatalogResult{
			DocumentsReclaimed: resp.DocumentsReclaimed,
			LocksExpired:       resp.LocksExpired,
			WorkspacesRemoved:  resp.WorkspacesRemoved,
			AlertsPurged:       resp.AlertsPurged,
		}, nil
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.SweepCatalogResult{}, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return api.SweepCatalogResult{}, err
	}
	defer store.Close()
	return api.SweepCatalog(cmdCtx, api.SweepCatalogRequest{
		Config: cfg,
		Store:  store,
		Logger: logging.NewNop(),
	})
}

func parseDocumentIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid document id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// accessActionService adapts catalogaccess.Access to the per-document action
// contract, mapping not-found lookup errors to a nil document.
type accessActionService struct {
	access catalogaccess.Access
}

func (s accessActionService) Describe(ctx context.Context, id int64) (*api.Document, error) {
	doc, err := s.access.Describe(ctx, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

func (s accessActionService) Retry(ctx context.Context, ids []int64) (int64, error) {
	return s.access.Retry(ctx, ids)
}

func (s accessActionService) Remove(ctx context.Context, id int64) (bool, error) {
	removed, err := s.access.Remove(ctx, []int64{id})
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}
