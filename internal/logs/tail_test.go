package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelscribe/internal/logs"
	"reelscribe/internal/testsupport"
)

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelscribe-2024-05-10.log")
	testsupport.WriteText(t, path, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("expected offset 6, got %d", result.Offset)
	}

	result, err = logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 3 || result.Lines[0] != "a" {
		t.Fatalf("short file should return every line, got %#v", result.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelscribe-2024-05-10.log")
	testsupport.WriteText(t, path, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected initial line, got %#v", result.Lines)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestLatestFile(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "reelscribe-2024-05-09.log")
	newer := filepath.Join(dir, "reelscribe-2024-05-10.log")
	testsupport.WriteText(t, older, "old\n")
	testsupport.WriteText(t, newer, "new\n")
	testsupport.WriteText(t, filepath.Join(dir, "other.log"), "x\n")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	got, err := logs.LatestFile(dir, "reelscribe-*.log")
	if err != nil {
		t.Fatalf("LatestFile: %v", err)
	}
	if got != newer {
		t.Fatalf("expected %s, got %s", newer, got)
	}

	got, err = logs.LatestFile(t.TempDir(), "reelscribe-*.log")
	if err != nil || got != "" {
		t.Fatalf("expected empty result for empty dir, got %q, %v", got, err)
	}
}
