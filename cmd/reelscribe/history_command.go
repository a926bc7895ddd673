package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelscribe/internal/history"
	"reelscribe/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						formatTimestamp(run.StartedAt),
						string(run.Status),
						formatRunDuration(run.Duration()),
						strconv.Itoa(run.WorkItems),
						strconv.Itoa(run.Transcripts),
						strconv.Itoa(run.Candidates),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Status", "Duration", "Topics", "Transcripts", "Videos"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the topics and videos of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				items, err := store.WorkItems(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				candidates, err := store.Candidates(cmd.Context(), run.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:      %s\n", run.ID)
				fmt.Fprintf(out, "Ledger:   %s\n", run.LedgerPath)
				fmt.Fprintf(out, "Status:   %s\n", run.Status)
				fmt.Fprintf(out, "Started:  %s\n", formatTimestamp(run.StartedAt))
				fmt.Fprintf(out, "Duration: %s\n", formatRunDuration(run.Duration()))
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
				}

				itemRows := make([][]string, 0, len(items))
				for _, item := range items {
					transcriptPath := item.TranscriptPath
					if transcriptPath == "" {
						transcriptPath = "-"
					}
					itemRows = append(itemRows, []string{
						strconv.Itoa(item.Row),
						item.Topic,
						strconv.Itoa(item.LookbackDays),
						strconv.Itoa(item.Discovered),
						strconv.Itoa(item.Eligible),
						strconv.Itoa(item.Transcribed),
						transcriptPath,
						item.ErrorMessage,
					})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Row", "Topic", "Days", "Found", "Eligible", "Transcribed", "Transcript", "Error"},
					itemRows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
				))

				if len(candidates) == 0 {
					return nil
				}
				candRows := make([][]string, 0, len(candidates))
				for _, c := range candidates {
					lang := c.Language
					if c.Fallback && lang != "" {
						lang += "*"
					}
					candRows = append(candRows, []string{
						strconv.Itoa(c.Row),
						strconv.Itoa(c.Ordinal),
						textutil.Truncate(c.Title, 40),
						c.State,
						c.Stage,
						lang,
						strconv.Itoa(c.TextLength),
						textutil.Truncate(c.Error, 60),
					})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Row", "Video", "Title", "State", "Stage", "Lang", "Chars", "Error"},
					candRows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatRunDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
