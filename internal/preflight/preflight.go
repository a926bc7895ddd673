package preflight

import (
	"fmt"
	"strings"

	"reelscribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and binary checks for the given config.
// Network checks are left to the doctor command.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Transcripts directory", cfg.Paths.TranscriptsDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckLedger(cfg.Ledger.Path),
		CheckClassifierModel(cfg.Identifier.ModelDir),
	}
	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: status.Command}
		if !status.Available {
			result.Detail = strings.TrimSpace(fmt.Sprintf("%s %s", status.Detail, optionalSuffix(status.Optional)))
		}
		results = append(results, result)
	}
	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

func optionalSuffix(optional bool) string {
	if optional {
		return "(optional)"
	}
	return ""
}
