package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"reelscribe/internal/langid"
	"reelscribe/internal/language"
	"reelscribe/internal/recognition"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the language classifier and recognition models",
	}

	modelsCmd.AddCommand(newModelsListCommand(ctx))
	modelsCmd.AddCommand(newModelsFetchCommand(ctx))

	return modelsCmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the configured recognition model for each language",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry := recognition.NewRegistry(cfg.Languages)
			accepted := language.NewSet(cfg.Languages.Accepted...)

			rows := make([][]string, 0, len(cfg.Languages.Models))
			for _, spec := range registry.Specs() {
				location := spec.ModelPath
				if location == "" {
					location = spec.ModelName
				}
				rows = append(rows, []string{spec.Language, language.DisplayName(spec.Language), spec.Backend, location, yesNo(accepted.Contains(spec.Language)), "ready"})
			}
			unusable := registry.Unusable()
			codes := make([]string, 0, len(unusable))
			for code := range unusable {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			for _, code := range codes {
				rows = append(rows, []string{code, language.DisplayName(code), "-", "-", yesNo(accepted.Contains(code)), unusable[code]})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No recognition models configured")
			} else {
				fmt.Fprintln(out, renderTable(
					[]string{"Code", "Language", "Engine", "Model", "Accepted", "Status"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
			}

			missing := langid.MissingModelFiles(cfg.Identifier.ModelDir)
			if len(missing) == 0 {
				fmt.Fprintf(out, "Classifier model: %s (complete)\n", cfg.Identifier.ModelDir)
			} else {
				fmt.Fprintf(out, "Classifier model: %s (missing %s)\n", cfg.Identifier.ModelDir, strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func newModelsFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download missing language classifier checkpoint files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			fetched, err := langid.EnsureModel(cmd.Context(), langid.ModelSource{
				HubURL: cfg.Identifier.HubURL,
				Repo:   cfg.Identifier.ModelRepo,
				Token:  cfg.Identifier.HFToken,
				Dir:    cfg.Identifier.ModelDir,
			}, logger)
			out := cmd.OutOrStdout()
			for _, name := range fetched {
				fmt.Fprintf(out, "Downloaded %s\n", name)
			}
			if err != nil {
				return fmt.Errorf("fetch classifier model %s: %w", cfg.Identifier.ModelRepo, err)
			}
			if len(fetched) == 0 {
				fmt.Fprintf(out, "Classifier model already present in %s\n", cfg.Identifier.ModelDir)
			}
			return nil
		},
	}
}
