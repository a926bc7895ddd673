package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelscribe/internal/history"
	"reelscribe/internal/ledger"
	"reelscribe/internal/logging"
	"reelscribe/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var ledgerPath string
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every ledger row and write one transcript per topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if path := strings.TrimSpace(ledgerPath); path != "" {
				cfg.Ledger.Path = path
			}
			if workers > 0 {
				cfg.Workflow.CandidateWorkers = workers
			}

			l, err := ledger.Load(cfg.Ledger.Path, ledger.ColumnsFromConfig(cfg.Ledger))
			if err != nil {
				return err
			}

			store, err := history.Open(cfg)
			if err != nil {
				logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "delete "+cfg.HistoryPath()+" if the schema changed"),
					logging.String(logging.FieldImpact, "this run is not recorded in reelscribe history"),
				)
				store = nil
			} else {
				defer store.Close()
			}

			components := pipeline.BuildComponents(cfg, logger)
			defer components.Close()

			orch, err := pipeline.New(cfg, components.Deps(store), logger)
			if err != nil {
				return err
			}
			result, runErr := orch.Run(cmd.Context(), l)
			if result.RunID != "" {
				printRunSummary(cmd, result)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&ledgerPath, "ledger", "l", "", "Ledger CSV to process (overrides ledger.path)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Candidate workers per topic (overrides workflow.candidate_workers)")
	return cmd
}

func printRunSummary(cmd *cobra.Command, result pipeline.RunResult) {
	rows := make([][]string, 0, len(result.Items))
	for _, res := range result.Items {
		note := ""
		if res.Err != nil {
			note = res.Err.Error()
		}
		transcriptPath := res.TranscriptPath
		if transcriptPath == "" {
			transcriptPath = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(res.Item.Row),
			res.Item.Topic,
			strconv.Itoa(res.Discovered),
			strconv.Itoa(len(res.Outcomes)),
			strconv.Itoa(res.Transcribed()),
			transcriptPath,
			note,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", result.RunID)
	fmt.Fprintln(out, renderTable(
		[]string{"Row", "Topic", "Found", "Eligible", "Transcribed", "Transcript", "Note"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
}
