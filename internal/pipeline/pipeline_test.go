package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelscribe/internal/acquire"
	"reelscribe/internal/config"
	"reelscribe/internal/discovery"
	"reelscribe/internal/history"
	"reelscribe/internal/langid"
	"reelscribe/internal/ledger"
	"reelscribe/internal/logging"
	"reelscribe/internal/media/normalize"
	"reelscribe/internal/notifications"
	"reelscribe/internal/services"
	"reelscribe/internal/testsupport"
	"reelscribe/internal/transcript"
)

var testNow = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]discovery.Candidate
	queries []string
	updates int
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) []discovery.Candidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return append([]discovery.Candidate(nil), f.results[query]...)
}

func (f *fakeSearcher) Update(context.Context) error {
	f.updates++
	return errors.New("offline")
}

// fakeAcquirer writes the candidate id into the downloaded file so later
// fakes can recover which candidate they are handling.
type fakeAcquirer struct {
	fail map[string]bool

	mu    sync.Mutex
	paths []string
}

func (f *fakeAcquirer) Acquire(_ context.Context, c discovery.Candidate, dir string) (acquire.Audio, error) {
	if f.fail[c.ID] {
		return acquire.Audio{}, services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", "download failed", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return acquire.Audio{}, err
	}
	path := filepath.Join(dir, acquire.FileStem(c)+".mp3")
	if err := os.WriteFile(path, []byte(c.ID), 0o644); err != nil {
		return acquire.Audio{}, err
	}
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	return acquire.Audio{Path: path, Candidate: c}, nil
}

type fakeNormalizer struct{}

func (fakeNormalizer) Normalize(_ context.Context, input, output string) (normalize.Audio, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return normalize.Audio{}, services.Wrap(services.ErrNotFound, "normalize", "read", input, err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return normalize.Audio{}, err
	}
	return normalize.Audio{Path: output, Channels: 1, SampleRate: 16000, BitDepth: 16}, nil
}

type fakeIdentifier struct {
	scratchDir string
	languages  map[string]string
	fallback   map[string]bool
}

func (f *fakeIdentifier) Identify(ctx context.Context, path string) (langid.Identification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return langid.Identification{}, err
	}
	id := string(data)
	// Leave an excerpt behind to exercise the per-work-item scratch cleanup.
	if err := os.MkdirAll(f.scratchDir, 0o755); err == nil {
		ordinal, _ := services.OrdinalFromContext(ctx)
		_ = os.WriteFile(filepath.Join(f.scratchDir, fmt.Sprintf("excerpt-c%d.wav", ordinal)), []byte("x"), 0o644)
	}
	tag := f.languages[id]
	if tag == "" {
		tag = "en"
	}
	return langid.Identification{Tag: tag, Fallback: f.fallback[id], Raw: tag}, nil
}

type fakeDispatcher struct {
	texts  map[string]string
	delays map[string]time.Duration

	mu    sync.Mutex
	calls []string
}

func (f *fakeDispatcher) Transcribe(ctx context.Context, path, tag string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	id := string(data)
	f.mu.Lock()
	f.calls = append(f.calls, id+":"+tag)
	f.mu.Unlock()
	if d := f.delays[id]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if text, ok := f.texts[id]; ok {
		return text, nil
	}
	return "text of " + id, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   map[notifications.Event]notifications.Payload
}

func (f *fakeNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	if f.last == nil {
		f.last = map[notifications.Event]notifications.Payload{}
	}
	f.last[event] = payload
	return nil
}

type harness struct {
	cfg        *config.Config
	searcher   *fakeSearcher
	acquirer   *fakeAcquirer
	identifier *fakeIdentifier
	dispatcher *fakeDispatcher
	store      *history.Store
	notifier   *fakeNotifier
	orch       *Orchestrator
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:        cfg,
		searcher:   &fakeSearcher{results: map[string][]discovery.Candidate{}},
		acquirer:   &fakeAcquirer{fail: map[string]bool{}},
		identifier: &fakeIdentifier{scratchDir: cfg.Paths.ScratchDir, languages: map[string]string{}, fallback: map[string]bool{}},
		dispatcher: &fakeDispatcher{texts: map[string]string{}, delays: map[string]time.Duration{}},
		store:      testsupport.MustOpenHistory(t, cfg),
		notifier:   &fakeNotifier{},
	}
	orch, err := New(cfg, Deps{
		Searcher:   h.searcher,
		Acquirer:   h.acquirer,
		Normalizer: fakeNormalizer{},
		Identifier: h.identifier,
		Dispatcher: h.dispatcher,
		History:    h.store,
		Notifier:   h.notifier,
		Now:        func() time.Time { return testNow },
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.orch = orch
	return h
}

func (h *harness) addResults(topic string, cands ...discovery.Candidate) {
	h.searcher.results[h.orch.Query(topic)] = cands
}

func (h *harness) run(t *testing.T, csv string) (RunResult, *ledger.Ledger) {
	t.Helper()
	testsupport.WriteText(t, h.cfg.Ledger.Path, csv)
	l, err := ledger.Load(h.cfg.Ledger.Path, ledger.ColumnsFromConfig(h.cfg.Ledger))
	if err != nil {
		t.Fatalf("ledger.Load: %v", err)
	}
	result, err := h.orch.Run(context.Background(), l)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result, l
}

func recent(id, title string) discovery.Candidate {
	return discovery.Candidate{
		ID:         id,
		Title:      title,
		URL:        "https://example.com/watch?v=" + id,
		UploadDate: "20240509",
		Duration:   120,
	}
}

func assertNoTransientFiles(t *testing.T, cfg *config.Config) {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read work dir: %v", err)
	}
	for _, e := range entries {
		t.Errorf("unexpected leftover in work dir: %s", e.Name())
	}
	if _, err := os.Stat(cfg.Paths.ScratchDir); !os.IsNotExist(err) {
		t.Errorf("expected scratch dir removed, stat err=%v", err)
	}
}

func TestRunWritesTranscriptAndLedger(t *testing.T) {
	h := newHarness(t)
	h.addResults("Austin", recent("a1", "Austin market update"), recent("a2", "Austin homes"))
	h.identifier.languages["a2"] = "hi"

	result, _ := h.run(t, "city,days\nAustin,7\n")

	if len(result.Items) != 1 {
		t.Fatalf("expected one work item, got %d", len(result.Items))
	}
	path := result.Items[0].TranscriptPath
	if path != filepath.Join(h.cfg.Paths.TranscriptsDir, "Austin_transcript.txt") {
		t.Fatalf("unexpected transcript path %q", path)
	}
	want := "==== Video 1 (en) ====\ntext of a1\n\n==== Video 2 (hi) ====\ntext of a2\n"
	if got := testsupport.ReadFile(t, path); got != want {
		t.Fatalf("unexpected transcript:\n%s\nwant:\n%s", got, want)
	}
	if got := testsupport.ReadFile(t, h.cfg.Ledger.Path); got != "city,days,transcription_path\nAustin,7,"+path+"\n" {
		t.Fatalf("unexpected ledger %q", got)
	}
	if h.searcher.queries[0] != "Austin real estate market" {
		t.Fatalf("unexpected query %q", h.searcher.queries[0])
	}
	assertNoTransientFiles(t, h.cfg)
	for _, p := range h.acquirer.paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("downloaded file %s should be removed", p)
		}
	}
}

func TestRunDropsUnacceptedLanguage(t *testing.T) {
	h := newHarness(t)
	h.addResults("Lyon", recent("f1", "Marché immobilier"), recent("e1", "Lyon housing"))
	h.identifier.languages["f1"] = "fr"

	result, _ := h.run(t, "city,days\nLyon,3\n")

	outcomes := result.Items[0].Outcomes
	if outcomes[0].State != StateDropped || outcomes[0].Stage != StageIdentify {
		t.Fatalf("expected first candidate dropped at identify, got %#v", outcomes[0])
	}
	if !errors.Is(outcomes[0].Err, services.ErrUnsupportedLanguage) {
		t.Fatalf("expected unsupported language error, got %v", outcomes[0].Err)
	}
	for _, call := range h.dispatcher.calls {
		if strings.HasPrefix(call, "f1:") {
			t.Fatal("dropped candidate must not reach recognition")
		}
	}
	content := testsupport.ReadFile(t, result.Items[0].TranscriptPath)
	if content != "==== Video 2 (en) ====\ntext of e1\n" {
		t.Fatalf("expected only the accepted candidate with its survival ordinal, got %q", content)
	}
	assertNoTransientFiles(t, h.cfg)

	recorded, err := h.store.Candidates(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(recorded) != 2 || recorded[0].State != string(StateDropped) || recorded[0].Language != "fr" {
		t.Fatalf("unexpected recorded candidates %#v", recorded)
	}
}

type wavExcerpter struct {
	t *testing.T
}

func (e wavExcerpter) Excerpt(_ context.Context, _ string, _ int, dest string) error {
	testsupport.WriteWAV(e.t, dest, 1, 16000, 1600)
	return nil
}

func TestRunDropsClassifierCodeOutsideLanguageTable(t *testing.T) {
	h := newHarness(t)
	identifier := langid.New(h.cfg.Identifier, h.cfg.Paths.ScratchDir, wavExcerpter{t: t}, nil)
	identifier.WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("ceb: Cebuano\nen: English\n"), nil
	})
	orch, err := New(h.cfg, Deps{
		Searcher:   h.searcher,
		Acquirer:   h.acquirer,
		Normalizer: fakeNormalizer{},
		Identifier: identifier,
		Dispatcher: h.dispatcher,
		History:    h.store,
		Now:        func() time.Time { return testNow },
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.orch = orch
	h.addResults("Cebu", recent("c1", "Balay sa Cebu"))

	result, l := h.run(t, "city,days\nCebu,3\n")

	out := result.Items[0].Outcomes[0]
	if out.State != StateDropped || out.Language != "ceb" || out.Fallback {
		t.Fatalf("expected ceb candidate dropped without fallback, got %#v", out)
	}
	if !errors.Is(out.Err, services.ErrUnsupportedLanguage) {
		t.Fatalf("expected unsupported language error, got %v", out.Err)
	}
	if len(h.dispatcher.calls) != 0 {
		t.Fatalf("dropped candidate must not reach recognition, calls=%v", h.dispatcher.calls)
	}
	if result.Items[0].TranscriptPath != "" {
		t.Fatalf("expected no transcript, got %s", result.Items[0].TranscriptPath)
	}
	if items := l.Items(); items[0].TranscriptPath != "" {
		t.Fatalf("expected empty ledger path, got %q", items[0].TranscriptPath)
	}
	assertNoTransientFiles(t, h.cfg)
}

func TestRunOrdinalsRestartPerWorkItem(t *testing.T) {
	h := newHarness(t)
	h.addResults("Austin", recent("a1", "A1"), recent("a2", "A2"))
	h.addResults("Pune", recent("p1", "P1"), recent("p2", "P2"), recent("p3", "P3"))
	h.acquirer.fail["p1"] = true

	result, l := h.run(t, "city,days\nAustin,7\nPune,7\n")

	if len(result.Items) != 2 {
		t.Fatalf("expected two work items, got %d", len(result.Items))
	}
	for i, res := range result.Items {
		segments, err := transcript.Parse(testsupport.ReadFile(t, res.TranscriptPath))
		if err != nil {
			t.Fatalf("Parse %d: %v", i, err)
		}
		if segments[0].Ordinal > 2 {
			t.Fatalf("ordinals should restart per work item, got %#v", segments)
		}
	}
	pune, _ := transcript.Parse(testsupport.ReadFile(t, result.Items[1].TranscriptPath))
	if len(pune) != 2 || pune[0].Ordinal != 2 || pune[1].Ordinal != 3 {
		t.Fatalf("skipped candidate must keep its ordinal gap, got %#v", pune)
	}
	if result.Items[1].Outcomes[0].State != StateSkipped || result.Items[1].Outcomes[0].Stage != StageAcquire {
		t.Fatalf("expected acquire skip, got %#v", result.Items[1].Outcomes[0])
	}
	for _, item := range l.Items() {
		if item.TranscriptPath == "" {
			t.Fatalf("expected transcript path for row %d", item.Row)
		}
	}
}

func TestRunZeroSurvivorsWritesNothing(t *testing.T) {
	h := newHarness(t)
	old := recent("o1", "Old")
	old.UploadDate = "20240101"
	short := recent("s1", "Short")
	short.Duration = 10
	h.addResults("Boise", old, short)

	result, l := h.run(t, "city,days\nBoise,7\n")

	if result.Items[0].TranscriptPath != "" || len(result.Items[0].Outcomes) != 0 {
		t.Fatalf("expected no transcript, got %#v", result.Items[0])
	}
	if result.Items[0].Discovered != 2 {
		t.Fatalf("expected two discovered, got %d", result.Items[0].Discovered)
	}
	entries, _ := os.ReadDir(h.cfg.Paths.TranscriptsDir)
	if len(entries) != 0 {
		t.Fatalf("expected no transcript files, got %d", len(entries))
	}
	if got := l.Items()[0].TranscriptPath; got != "" {
		t.Fatalf("expected empty ledger path, got %q", got)
	}
	if len(h.dispatcher.calls) != 0 {
		t.Fatal("no candidate should reach recognition")
	}
}

func TestRunEmptyTextContributesNoSegment(t *testing.T) {
	h := newHarness(t)
	h.addResults("Austin", recent("a1", "A1"))
	h.dispatcher.texts["a1"] = ""

	result, _ := h.run(t, "city,days\nAustin,7\n")

	res := result.Items[0]
	if res.TranscriptPath != "" {
		t.Fatalf("expected no transcript, got %q", res.TranscriptPath)
	}
	if res.Outcomes[0].State != StateTranscribed || res.Transcribed() != 0 {
		t.Fatalf("unexpected outcome %#v", res.Outcomes[0])
	}
}

func TestRunWorkerPoolPreservesOrdinalOrder(t *testing.T) {
	h := newHarness(t, testsupport.WithWorkers(4))
	var cands []discovery.Candidate
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("v%d", i)
		cands = append(cands, recent(id, "Video "+id))
		// Earlier ordinals finish last.
		h.dispatcher.delays[id] = time.Duration(7-i) * 15 * time.Millisecond
	}
	h.addResults("Austin", cands...)

	result, _ := h.run(t, "city,days\nAustin,7\n")

	segments, err := transcript.Parse(testsupport.ReadFile(t, result.Items[0].TranscriptPath))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(segments) != 6 {
		t.Fatalf("expected 6 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if seg.Ordinal != i+1 || seg.Text != fmt.Sprintf("text of v%d", i+1) {
			t.Fatalf("segment %d out of order: %#v", i, seg)
		}
	}
	assertNoTransientFiles(t, h.cfg)
}

func TestRunSkipsInvalidRowsAndRecordsHistory(t *testing.T) {
	h := newHarness(t)
	h.addResults("Austin", recent("a1", "A1"))

	result, l := h.run(t, "city,days\n,7\nAustin,7\n")

	if result.Items[0].Err == nil || !errors.Is(result.Items[0].Err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty topic, got %v", result.Items[0].Err)
	}
	if l.Items()[1].TranscriptPath == "" {
		t.Fatal("valid row should still be processed")
	}

	run, err := h.store.GetRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.RunStatusCompleted || run.WorkItems != 2 || run.Transcripts != 1 {
		t.Fatalf("unexpected run record %#v", run)
	}
}

func TestRunUpdateFailureOnlyWarns(t *testing.T) {
	h := newHarness(t)
	h.cfg.Discovery.UpdateOnStart = true
	h.addResults("Austin", recent("a1", "A1"))

	result, _ := h.run(t, "city,days\nAustin,7\n")

	if h.searcher.updates != 1 {
		t.Fatalf("expected one update attempt, got %d", h.searcher.updates)
	}
	if result.Items[0].TranscriptPath == "" {
		t.Fatal("expected transcript despite update failure")
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	h := newHarness(t)
	release, err := AcquireLock(h.cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer release()

	testsupport.WriteText(t, h.cfg.Ledger.Path, "city,days\nAustin,7\n")
	l, err := ledger.Load(h.cfg.Ledger.Path, ledger.ColumnsFromConfig(h.cfg.Ledger))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.orch.Run(context.Background(), l); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunCancelledMarksHistory(t *testing.T) {
	h := newHarness(t)
	h.addResults("Austin", recent("a1", "A1"))
	testsupport.WriteText(t, h.cfg.Ledger.Path, "city,days\nAustin,7\n")
	l, err := ledger.Load(h.cfg.Ledger.Path, ledger.ColumnsFromConfig(h.cfg.Ledger))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.orch.Run(ctx, l)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	run, err := h.store.GetRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.RunStatusCancelled {
		t.Fatalf("expected cancelled run, got %s", run.Status)
	}
}

func TestFailurePolicyTable(t *testing.T) {
	cases := []struct {
		err  error
		want State
	}{
		{services.Wrap(services.ErrUnsupportedLanguage, "identify", "accept", "fr", nil), StateDropped},
		{services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", "", nil), StateSkipped},
		{services.Wrap(services.ErrValidation, "normalize", "verify", "", nil), StateSkipped},
		{services.Wrap(services.ErrConfiguration, "transcribe", "lookup", "", nil), StateSkipped},
		{errors.New("plain"), StateSkipped},
	}
	for _, tc := range cases {
		if got := failurePolicy(tc.err); got != tc.want {
			t.Errorf("failurePolicy(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
	state := StateEligible
	var stages []string
	for !state.Terminal() {
		tr, ok := transitionFrom(state)
		if !ok {
			t.Fatalf("no transition from %s", state)
		}
		stages = append(stages, tr.stage)
		state = tr.done
	}
	if strings.Join(stages, ",") != "acquire,normalize,identify,transcribe" {
		t.Fatalf("unexpected stage order %v", stages)
	}
}

func TestRunPublishesNotifications(t *testing.T) {
	h := newHarness(t)
	h.addResults("Austin", recent("a1", "Austin market update"))

	h.run(t, "city,days\nAustin,7\nDallas,7\n")

	want := []notifications.Event{notifications.EventTopicTranscribed, notifications.EventRunCompleted}
	if fmt.Sprint(h.notifier.events) != fmt.Sprint(want) {
		t.Fatalf("expected events %v, got %v", want, h.notifier.events)
	}
	topic := h.notifier.last[notifications.EventTopicTranscribed]
	if topic["topic"] != "Austin" || topic["segments"] != 1 {
		t.Fatalf("unexpected topic payload %v", topic)
	}
	summary := h.notifier.last[notifications.EventRunCompleted]
	if summary["topics"] != 2 || summary["transcripts"] != 1 || summary["failed"] != 0 {
		t.Fatalf("unexpected run payload %v", summary)
	}
}
