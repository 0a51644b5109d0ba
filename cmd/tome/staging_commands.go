package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tome/internal/api"
	"tome/internal/catalog"
	"tome/internal/logging"
	"tome/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage staging workspaces",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staging workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stagingDir := strings.TrimSpace(cfg.Paths.StagingDir)
			if stagingDir == "" {
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"staging_dir":      "",
						"directories":      []any{},
						"total_size_bytes": 0,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Staging directory not configured")
				return nil
			}

			dirs, err := staging.ListDirectories(stagingDir)
			if err != nil {
				return fmt.Errorf("list staging workspaces: %w", err)
			}

			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				var totalSize int64
				for _, dir := range dirs {
					totalSize += dir.Size
				}
				return writeJSON(cmd, map[string]any{
					"staging_dir":      stagingDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			if len(dirs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No staging workspaces found")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staging directory: %s\n\n", stagingDir)

			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				totalSize += dir.Size
				rows = append(rows, []string{dir.Name, formatDuration(age), logging.FormatBytes(dir.Size)})
			}

			table := renderTable(
				[]string{"Workspace", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			)
			fmt.Fprint(out, table)
			fmt.Fprintf(out, "\nTotal: %d workspaces, %s\n", len(dirs), logging.FormatBytes(totalSize))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove orphaned staging workspaces",
		Long: `Remove staging workspaces not associated with any catalog document.

By default, only removes workspaces that no current catalog document
references (orphans left behind by cleared or removed entries).

Use --all to remove every staging workspace regardless of catalog state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			req := api.CleanStagingRequest{
				StagingDir: cfg.Paths.StagingDir,
				CleanAll:   cleanAll,
			}

			var store *catalog.Store
			if !cleanAll {
				store, err = catalog.Open(cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				req.Roots = api.CatalogRootProvider{Store: store, StagingDir: cfg.Paths.StagingDir}
			}

			result, err := api.CleanStagingDirectories(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !result.Configured {
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": 0, "errors": []any{}})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Staging directory not configured")
				return nil
			}
			if ctx.JSONMode() {
				return writeStagingCleanJSON(cmd, result.Cleanup)
			}
			return printStagingCleanResult(cmd, result.Cleanup, result.Scope)
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove all staging workspaces (including active)")

	return cmd
}

func printStagingCleanResult(cmd *cobra.Command, result staging.CleanStaleResult, label string) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s workspaces to clean\n", label)
		return nil
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d %s workspaces, %d errors\n", len(result.Removed), label, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d %s workspaces\n", len(result.Removed), label)
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}

func writeStagingCleanJSON(cmd *cobra.Command, result staging.CleanStaleResult) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	return writeJSON(cmd, map[string]any{
		"removed": len(result.Removed),
		"errors":  errs,
	})
}
