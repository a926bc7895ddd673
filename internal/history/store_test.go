package history_test

import (
	"context"
	"errors"
	"testing"

	"reelscribe/internal/history"
	"reelscribe/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.BeginRun(ctx, "run-a1", cfg.Ledger.Path); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	items := []history.WorkItem{
		{RunID: "run-a1", Row: 1, Topic: "Austin", LookbackDays: 7, Discovered: 5, Eligible: 2, Transcribed: 2, TranscriptPath: "/t/Austin_transcript.txt"},
		{RunID: "run-a1", Row: 2, Topic: "Boise", LookbackDays: 7, ErrorMessage: "no eligible candidates"},
	}
	for _, item := range items {
		if err := store.RecordWorkItem(ctx, item); err != nil {
			t.Fatalf("RecordWorkItem: %v", err)
		}
	}
	candidates := []history.Candidate{
		{RunID: "run-a1", Row: 1, Ordinal: 2, CandidateID: "v2", Title: "Two", State: "skipped", Stage: "acquire", Error: "download failed"},
		{RunID: "run-a1", Row: 1, Ordinal: 1, CandidateID: "v1", Title: "One", State: "transcribed", Language: "hi", Fallback: true, TextLength: 42},
	}
	for _, c := range candidates {
		if err := store.RecordCandidate(ctx, c); err != nil {
			t.Fatalf("RecordCandidate: %v", err)
		}
	}
	if err := store.FinishRun(ctx, "run-a1", history.RunStatusCompleted, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err := store.GetRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("GetRun by prefix: %v", err)
	}
	if run.ID != "run-a1" || run.Status != history.RunStatusCompleted {
		t.Fatalf("unexpected run %#v", run)
	}
	if run.WorkItems != 2 || run.Transcripts != 1 || run.Candidates != 2 {
		t.Fatalf("unexpected counts %#v", run)
	}
	if run.FinishedAt.IsZero() || run.Duration() < 0 {
		t.Fatalf("expected finished timestamp, got %#v", run)
	}

	gotItems, err := store.WorkItems(ctx, "run-a1")
	if err != nil {
		t.Fatalf("WorkItems: %v", err)
	}
	if len(gotItems) != 2 || gotItems[0].Topic != "Austin" || gotItems[1].ErrorMessage == "" {
		t.Fatalf("unexpected work items %#v", gotItems)
	}

	gotCandidates, err := store.Candidates(ctx, "run-a1")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(gotCandidates) != 2 || gotCandidates[0].Ordinal != 1 || gotCandidates[1].Ordinal != 2 {
		t.Fatalf("expected candidates ordered by ordinal, got %#v", gotCandidates)
	}
	if !gotCandidates[0].Fallback || gotCandidates[0].Language != "hi" || gotCandidates[0].TextLength != 42 {
		t.Fatalf("unexpected candidate %#v", gotCandidates[0])
	}
}

func TestRecordCandidateReplacesOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.BeginRun(ctx, "run-1", ""); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	c := history.Candidate{RunID: "run-1", Row: 1, Ordinal: 1, CandidateID: "v1", State: "acquired"}
	if err := store.RecordCandidate(ctx, c); err != nil {
		t.Fatal(err)
	}
	c.State = "transcribed"
	if err := store.RecordCandidate(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err := store.Candidates(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].State != "transcribed" {
		t.Fatalf("expected single replaced outcome, got %#v", got)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		if err := store.BeginRun(ctx, id, ""); err != nil {
			t.Fatalf("BeginRun %s: %v", id, err)
		}
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "third" || runs[1].ID != "second" {
		t.Fatalf("unexpected runs %#v", runs)
	}
	if runs[0].Status != history.RunStatusRunning {
		t.Fatalf("expected running status, got %s", runs[0].Status)
	}
}

func TestGetRunErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"abc-1", "abc-2"} {
		if err := store.BeginRun(ctx, id, ""); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.GetRun(ctx, "zzz"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.GetRun(ctx, "abc"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	if err := store.FinishRun(ctx, "missing", history.RunStatusFailed, "x"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected not found on finish, got %v", err)
	}
}

func TestReopenKeepsHistoryAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.BeginRun(ctx, "persisted", ""); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened := testsupport.MustOpenHistory(t, cfg)
	health, err := reopened.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health %#v", health)
	}
	if health.TotalRuns != 1 || health.SchemaVersion != 1 {
		t.Fatalf("unexpected health counts %#v", health)
	}
}
