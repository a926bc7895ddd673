package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"reelscribe/internal/history"
	"reelscribe/internal/language"
	"reelscribe/internal/preflight"
	"reelscribe/internal/recognition"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, external tools, models and run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			lines := renderSectionHeader("Environment", colorize)
			for _, result := range preflight.RunAll(cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failures++
				} else if strings.HasSuffix(result.Detail, "(optional)") {
					kind = statusWarn
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if !offline {
				hub := preflight.CheckHub(cmd.Context(), cfg.Identifier.HubURL)
				kind := statusOK
				if !hub.Passed {
					kind = statusWarn
				}
				lines = append(lines, renderStatusLine(hub.Name, kind, hub.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Languages", colorize)...)
			registry := recognition.NewRegistry(cfg.Languages)
			accepted := language.NewSet(cfg.Languages.Accepted...)
			for _, spec := range registry.Specs() {
				kind := statusOK
				detail := spec.String()
				if !accepted.Contains(spec.Language) {
					kind = statusInfo
					detail += " (not accepted)"
				}
				lines = append(lines, renderStatusLine(languageLabel(spec.Language), kind, detail, colorize))
			}
			unusable := registry.Unusable()
			codes := make([]string, 0, len(unusable))
			for code := range unusable {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			for _, code := range codes {
				lines = append(lines, renderStatusLine(languageLabel(code), statusWarn, unusable[code], colorize))
			}
			usable := 0
			for _, code := range accepted.Codes() {
				if _, err := registry.Lookup(code); err != nil {
					if _, listed := unusable[code]; !listed {
						lines = append(lines, renderStatusLine(languageLabel(code), statusWarn, "accepted but no recognition model configured", colorize))
					}
					continue
				}
				usable++
			}
			if usable == 0 {
				failures++
				lines = append(lines, renderStatusLine("Recognition", statusError, noUsableEngineDetail(), colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Run history", colorize)...)
			lines = append(lines, historyLines(cmd, ctx, colorize)...)

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if failures > 0 {
				return fmt.Errorf("%d checks failed", failures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network reachability checks")
	return cmd
}

func historyLines(cmd *cobra.Command, ctx *commandContext, colorize bool) []string {
	var lines []string
	err := ctx.withHistory(func(store *history.Store) error {
		health, err := store.CheckHealth(cmd.Context())
		if err != nil {
			return err
		}
		kind := statusOK
		if !health.IntegrityCheck {
			kind = statusError
		}
		lines = append(lines,
			renderStatusLine("Database", kind, health.DBPath, colorize),
			renderStatusLine("Schema version", statusInfo, fmt.Sprintf("%d", health.SchemaVersion), colorize),
			renderStatusLine("Integrity check", kind, yesNo(health.IntegrityCheck), colorize),
			renderStatusLine("Recorded runs", statusInfo, fmt.Sprintf("%d", health.TotalRuns), colorize),
		)
		return nil
	})
	if err != nil {
		lines = append(lines, renderStatusLine("Database", statusWarn, err.Error(), colorize))
	}
	return lines
}

func noUsableEngineDetail() string {
	detail := "no accepted language has a usable recognition engine; every candidate would be skipped"
	if !recognition.VoskAvailable() {
		detail += " (vosk needs a build with -tags vosk)"
	}
	return detail
}

func languageLabel(code string) string {
	if name := language.DisplayName(code); name != "" && !strings.EqualFold(name, code) {
		return fmt.Sprintf("%s (%s)", name, code)
	}
	return code
}
