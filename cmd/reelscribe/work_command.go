package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelscribe/internal/pipeline"
	"reelscribe/internal/staging"
)

func newWorkCommand(ctx *commandContext) *cobra.Command {
	workCmd := &cobra.Command{
		Use:   "work",
		Short: "Inspect and clean transient run directories",
	}

	workCmd.AddCommand(newWorkListCommand(ctx))
	workCmd.AddCommand(newWorkCleanCommand(ctx))

	return workCmd
}

func newWorkListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List run directories left in the work directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			workDir := strings.TrimSpace(cfg.Paths.WorkDir)
			dirs, err := staging.ListDirectories(workDir)
			if err != nil {
				return fmt.Errorf("list work directories: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No work directories found")
				return nil
			}
			fmt.Fprintf(out, "Work directory: %s\n\n", workDir)

			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				totalSize += dir.Size
				rows = append(rows, []string{
					dir.Name,
					formatAge(time.Since(dir.ModTime).Truncate(time.Minute)),
					formatBytes(dir.Size),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Directory", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "Total: %d directories, %s\n", len(dirs), formatBytes(totalSize))
			return nil
		},
	}
}

func newWorkCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove work directories left behind by interrupted runs",
		Long: `Remove run directories under paths.work_dir.

By default only directories older than workflow.stale_work_hours are removed.
Refuses to run while another reelscribe run holds the run lock.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			release, err := pipeline.AcquireLock(cfg.LockPath())
			if err != nil {
				if errors.Is(err, pipeline.ErrLocked) {
					return errors.New("a run is in progress; try again when it finishes")
				}
				return err
			}
			defer release()

			maxAge := olderThan
			if !cmd.Flags().Changed("older-than") {
				maxAge = time.Duration(cfg.Workflow.StaleWorkHours) * time.Hour
			}
			if maxAge <= 0 {
				maxAge = time.Nanosecond
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, maxAge, logger, filepath.Base(cfg.Paths.ScratchDir))

			out := cmd.OutOrStdout()
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "No work directories to clean")
				return nil
			}
			fmt.Fprintf(out, "Removed %d work directories", len(result.Removed))
			if len(result.Errors) > 0 {
				fmt.Fprintf(out, ", %d errors\n", len(result.Errors))
				for _, e := range result.Errors {
					fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
				}
				return nil
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove directories older than this (0 removes all)")
	return cmd
}

func formatAge(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
