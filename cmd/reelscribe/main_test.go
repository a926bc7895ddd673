package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelscribe/internal/history"
	"reelscribe/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected config init to refuse overwriting an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestSplitPrintsSegments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Pune_transcript.txt")
	testsupport.WriteText(t, path, "==== Video 1 (hi) ====\nnamaste duniya\n\n==== Video 3 (en) ====\nhello world\n")

	out, _, err := runCLI(t, []string{"split", path}, "")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	requireContains(t, out, "namaste duniya")
	requireContains(t, out, "hello world")
	requireContains(t, out, "Language")

	out, _, err = runCLI(t, []string{"split", "--raw", path}, "")
	if err != nil {
		t.Fatalf("split --raw: %v", err)
	}
	if out != "namaste duniya\nhello world\n" {
		t.Fatalf("unexpected raw split output %q", out)
	}
}

func TestSearchFiltersCandidates(t *testing.T) {
	env := setupCLITestEnv(t)
	today := time.Now().Format("20060102")
	env.stubYtDlp(t, strings.Join([]string{
		fmt.Sprintf(`{"id":"fresh01","title":"Fresh tour","webpage_url":"https://example.test/fresh01","upload_date":%q,"duration":600}`, today),
		`{"id":"old0001","title":"Old tour","webpage_url":"https://example.test/old0001","upload_date":"20000101","duration":600}`,
	}, "\n"))

	out, _, err := runCLI(t, []string{"search", "Pune", "--days", "7"}, env.configPath)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	requireContains(t, out, "Query: Pune real estate market")
	requireContains(t, out, "fresh01")
	requireContains(t, out, "1 of 2 candidates eligible")
	if strings.Contains(out, "old0001") {
		t.Fatalf("old candidate should be filtered: %s", out)
	}

	out, _, err = runCLI(t, []string{"search", "Pune", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("search --all: %v", err)
	}
	requireContains(t, out, "old0001")
}

func TestRunWithNoCandidatesUpdatesLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteText(t, env.cfg.Ledger.Path, "city,days\nPune,7\nNashik,3\n")

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Run ")
	requireContains(t, out, "Nashik")

	ledger := testsupport.ReadFile(t, env.cfg.Ledger.Path)
	if ledger != "city,days,transcription_path\nPune,7,\nNashik,3,\n" {
		t.Fatalf("unexpected ledger after run:\n%s", ledger)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, string(history.RunStatusCompleted))
}

func TestRunMissingLedgerFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err == nil {
		t.Fatal("expected run to fail without a ledger")
	}
}

func TestHistoryShow(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenHistory(t, env.cfg)
	ctx := context.Background()

	const runID = "5f0c2a9e-1111-4222-8333-944455556666"
	if err := store.BeginRun(ctx, runID, env.cfg.Ledger.Path); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.RecordWorkItem(ctx, history.WorkItem{
		RunID:          runID,
		Row:            1,
		Topic:          "Pune",
		LookbackDays:   7,
		Discovered:     4,
		Eligible:       2,
		Transcribed:    1,
		TranscriptPath: "/tmp/Pune_transcript.txt",
	}); err != nil {
		t.Fatalf("RecordWorkItem: %v", err)
	}
	if err := store.RecordCandidate(ctx, history.Candidate{
		RunID:       runID,
		Row:         1,
		Ordinal:     1,
		CandidateID: "abc",
		Title:       "Pune market walk",
		State:       "transcribed",
		Stage:       "transcribe",
		Language:    "hi",
		Fallback:    true,
		TextLength:  42,
	}); err != nil {
		t.Fatalf("RecordCandidate: %v", err)
	}
	if err := store.FinishRun(ctx, runID, history.RunStatusCompleted, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, runID[:8])

	out, _, err = runCLI(t, []string{"history", "show", runID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, runID)
	requireContains(t, out, "Pune market walk")
	requireContains(t, out, "hi*")
	requireContains(t, out, "/tmp/Pune_transcript.txt")

	if _, _, err := runCLI(t, []string{"history", "show", "nope"}, env.configPath); err == nil {
		t.Fatal("expected unknown run id to fail")
	}
}

func TestDoctorReportsSections(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, _ := runCLI(t, []string{"doctor", "--offline"}, env.configPath)
	requireContains(t, out, "== Environment ==")
	requireContains(t, out, "== Languages ==")
	requireContains(t, out, "== Run history ==")
	requireContains(t, out, "Ledger")
	requireContains(t, out, "Classifier model")
}

func TestDoctorFailsWithoutUsableEngine(t *testing.T) {
	env := setupCLITestEnv(t)
	raw := testsupport.ReadFile(t, env.configPath)
	raw += "\n[languages]\naccepted = [\"en\"]\n\n[languages.models.en]\nengine = \"vosk\"\npath = \"" + filepath.Join(env.baseDir, "missing-model") + "\"\n"
	testsupport.WriteText(t, env.configPath, raw)

	out, _, err := runCLI(t, []string{"doctor", "--offline"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "checks failed") {
		t.Fatalf("expected doctor to fail, got %v", err)
	}
	requireContains(t, out, "no accepted language has a usable recognition engine")
}

func TestDoctorAcceptsWhisperXEngine(t *testing.T) {
	env := setupCLITestEnv(t)
	raw := testsupport.ReadFile(t, env.configPath)
	raw += "\n[languages]\naccepted = [\"en\"]\n\n[languages.models.en]\nengine = \"whisperx\"\nmodel = \"large-v3\"\n"
	testsupport.WriteText(t, env.configPath, raw)

	out, _, _ := runCLI(t, []string{"doctor", "--offline"}, env.configPath)
	if strings.Contains(out, "no accepted language has a usable recognition engine") {
		t.Fatalf("whisperx engine should count as usable:\n%s", out)
	}
}

func TestTranscribeLeavesSharedScratchAlone(t *testing.T) {
	env := setupCLITestEnv(t)
	excerpt := filepath.Join(env.cfg.Paths.ScratchDir, "excerpt-r1-c1.wav")
	testsupport.WriteText(t, excerpt, "in flight")

	if _, _, err := runCLI(t, []string{"transcribe", filepath.Join(env.baseDir, "missing.mp3")}, env.configPath); err == nil {
		t.Fatal("expected transcribe of a missing file to fail")
	}
	if _, err := os.Stat(excerpt); err != nil {
		t.Fatalf("shared scratch file removed: %v", err)
	}
	entries, err := os.ReadDir(env.cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "transcribe-") {
			t.Fatalf("private work dir left behind: %s", e.Name())
		}
	}
}

func TestModelsList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"models", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("models list: %v", err)
	}
	requireContains(t, out, "Classifier model:")
	requireContains(t, out, "missing")
}

func TestWorkCleanRemovesStaleRunDirectories(t *testing.T) {
	env := setupCLITestEnv(t)
	stale := filepath.Join(env.cfg.Paths.WorkDir, "run-stale")
	testsupport.WriteText(t, filepath.Join(stale, "row-1", "partial.mp3"), "x")
	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.ScratchDir, "excerpt.wav"), "x")
	old := time.Now().Add(-2 * time.Hour)
	for _, dir := range []string{stale, env.cfg.Paths.ScratchDir} {
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatalf("chtimes %s: %v", dir, err)
		}
	}

	out, _, err := runCLI(t, []string{"work", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("work list: %v", err)
	}
	requireContains(t, out, "run-stale")

	out, _, err = runCLI(t, []string{"work", "clean", "--older-than", "1h"}, env.configPath)
	if err != nil {
		t.Fatalf("work clean: %v", err)
	}
	requireContains(t, out, "Removed 1 work directories")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err=%v", stale, err)
	}
	if _, err := os.Stat(env.cfg.Paths.ScratchDir); err != nil {
		t.Fatalf("scratch dir should survive work clean: %v", err)
	}
}

func TestNotifyTestWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestLogsShowsLatestFile(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log files")

	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.LogDir, "reelscribe-2024-05-10.log"), "first\nsecond\nthird\n")
	out, _, err = runCLI(t, []string{"logs", "--lines", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --lines: %v", err)
	}
	if out != "second\nthird\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}
