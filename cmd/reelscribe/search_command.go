package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelscribe/internal/discovery"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var days int
	var limit int
	var unfiltered bool

	cmd := &cobra.Command{
		Use:   "search <topic>",
		Short: "List the candidate videos a run would consider for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Discovery.MaxResults
			}
			topic := strings.Join(args, " ")
			query := strings.TrimSpace(topic) + cfg.Discovery.QuerySuffix

			searcher := discovery.NewSearcher(cfg.Discovery.YtDlpBinary,
				time.Duration(cfg.Discovery.SearchTimeout)*time.Second, logger)
			candidates := searcher.Search(cmd.Context(), query, limit)
			found := len(candidates)
			if !unfiltered {
				candidates = discovery.Filter(candidates, days, cfg.Discovery.MinDurationSeconds, time.Now())
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Query: %s\n", query)
			if len(candidates) == 0 {
				fmt.Fprintf(out, "No eligible candidates (%d found)\n", found)
				return nil
			}
			rows := make([][]string, 0, len(candidates))
			for i, c := range candidates {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					c.UploadDate,
					formatSeconds(c.Duration),
					c.ID,
					c.Title,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Uploaded", "Duration", "ID", "Title"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d of %d candidates eligible\n", len(candidates), found)
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, "Look-back window in days")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum search results (defaults to discovery.max_results)")
	cmd.Flags().BoolVar(&unfiltered, "all", false, "Show every search result without the recency and duration filter")
	return cmd
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}
