package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reelscribe/internal/language"
	"reelscribe/internal/pipeline"
	"reelscribe/internal/staging"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var langFlag string

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Normalize, identify and transcribe a single local audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			input, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve input: %w", err)
			}

			workDir, err := os.MkdirTemp(cfg.Paths.WorkDir, "transcribe-*")
			if err != nil {
				return fmt.Errorf("create work directory: %w", err)
			}
			defer os.RemoveAll(workDir)

			// A concurrent run owns paths.scratch_dir; excerpts go to a private one.
			local := *cfg
			local.Paths.ScratchDir = filepath.Join(workDir, "scratch")
			defer staging.CleanScratch(local.Paths.ScratchDir, logger)

			components := pipeline.BuildComponents(&local, logger)
			defer components.Close()

			audio, err := components.Normalizer.Normalize(cmd.Context(), input, filepath.Join(workDir, "normalized.wav"))
			if err != nil {
				return err
			}

			tag := language.ToISO2(langFlag)
			fallback := false
			if strings.TrimSpace(langFlag) == "" {
				ident, err := components.Identifier.Identify(cmd.Context(), audio.Path)
				if err != nil {
					return err
				}
				tag, fallback = ident.Tag, ident.Fallback
			} else if tag == "" {
				return fmt.Errorf("unrecognized language %q", langFlag)
			}

			text, err := components.Dispatcher.Transcribe(cmd.Context(), audio.Path, tag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			label := tag
			if fallback {
				label += " (fallback)"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Language: %s %s\n", label, language.DisplayName(tag))
			if text == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "No speech recognized")
				return nil
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&langFlag, "language", "L", "", "Skip identification and use this language")
	return cmd
}
