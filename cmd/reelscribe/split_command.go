package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"reelscribe/internal/textutil"
	"reelscribe/internal/transcript"
)

func newSplitCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:         "split <transcript-file>",
		Short:       "Show the per-video segments of a transcript",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			out := cmd.OutOrStdout()
			if raw {
				for _, part := range transcript.Split(string(data)) {
					fmt.Fprintln(out, part)
				}
				return nil
			}

			segments, err := transcript.Parse(string(data))
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(segments))
			for _, seg := range segments {
				rows = append(rows, []string{
					strconv.Itoa(seg.Ordinal),
					seg.Language,
					strconv.Itoa(len(seg.Text)),
					textutil.Truncate(seg.Text, 60),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Video", "Language", "Chars", "Excerpt"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print each segment's text on its own line without a table")
	return cmd
}
