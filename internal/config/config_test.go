package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelscribe/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HF_TOKEN", "hf-test")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "reelscribe", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.ScratchDir != filepath.Join(wantWork, "temp") {
		t.Fatalf("unexpected scratch dir: %q", cfg.Paths.ScratchDir)
	}
	if cfg.Identifier.HFToken != "hf-test" {
		t.Fatalf("expected HF token from env, got %q", cfg.Identifier.HFToken)
	}
	if cfg.Identifier.FallbackLanguage != "en" || cfg.Identifier.FallbackPolicy != config.FallbackPolicyFallback {
		t.Fatalf("unexpected fallback defaults: %q %q", cfg.Identifier.FallbackLanguage, cfg.Identifier.FallbackPolicy)
	}
	if got := strings.Join(cfg.Languages.Accepted, ","); got != "en,hi,te,gu" {
		t.Fatalf("unexpected accepted languages: %s", got)
	}
	model, ok := cfg.Languages.Models["hi"]
	if !ok {
		t.Fatal("expected default hindi model entry")
	}
	if !strings.HasPrefix(model.Path, tempHome) {
		t.Fatalf("expected model path expanded under HOME, got %q", model.Path)
	}
	if cfg.Recognition.ChunkFrames != 4000 {
		t.Fatalf("unexpected chunk frames: %d", cfg.Recognition.ChunkFrames)
	}
	if cfg.Workflow.CandidateWorkers != 1 {
		t.Fatalf("expected sequential default, got %d workers", cfg.Workflow.CandidateWorkers)
	}
}

func TestLoadCustomConfigNormalizesLanguages(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "reelscribe.toml")

	payload := map[string]any{
		"paths": map[string]any{
			"work_dir": filepath.Join(dir, "work"),
		},
		"languages": map[string]any{
			"accepted": []string{"ENG", "hindi", "te", "te"},
			"models": map[string]any{
				"eng": map[string]any{"path": filepath.Join(dir, "vosk-en")},
				"ta":  map[string]any{"engine": "WhisperX"},
			},
		},
		"identifier": map[string]any{
			"fallback_policy": "SKIP",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if got := strings.Join(cfg.Languages.Accepted, ","); got != "en,hi,te" {
		t.Fatalf("unexpected accepted languages: %s", got)
	}
	en, ok := cfg.Languages.Models["en"]
	if !ok || en.Engine != config.EngineVosk {
		t.Fatalf("expected eng entry normalized to en/vosk, got %#v", cfg.Languages.Models)
	}
	ta := cfg.Languages.Models["ta"]
	if ta.Engine != config.EngineWhisperX || ta.Model == "" {
		t.Fatalf("expected whisperx entry with default model, got %#v", ta)
	}
	if cfg.Identifier.FallbackPolicy != config.FallbackPolicySkip {
		t.Fatalf("unexpected fallback policy %q", cfg.Identifier.FallbackPolicy)
	}
	if cfg.Paths.ScratchDir != filepath.Join(dir, "work", "temp") {
		t.Fatalf("scratch dir should follow work dir, got %q", cfg.Paths.ScratchDir)
	}
}

func TestLedgerPathEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ledger := filepath.Join(t.TempDir(), "cities.csv")
	t.Setenv("REELSCRIBE_LEDGER", ledger)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Ledger.Path != ledger {
		t.Fatalf("expected ledger path %q, got %q", ledger, cfg.Ledger.Path)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"max results", func(c *config.Config) { c.Discovery.MaxResults = 0 }, "discovery.max_results"},
		{"fallback policy", func(c *config.Config) { c.Identifier.FallbackPolicy = "guess" }, "identifier.fallback_policy"},
		{"fallback language", func(c *config.Config) { c.Identifier.FallbackLanguage = "" }, "identifier.fallback_language"},
		{"accepted", func(c *config.Config) { c.Languages.Accepted = nil }, "languages.accepted"},
		{"engine", func(c *config.Config) {
			c.Languages.Models["en"] = config.LanguageModel{Engine: "kaldi"}
		}, "languages.models.en.engine"},
		{"workers", func(c *config.Config) { c.Workflow.CandidateWorkers = 0 }, "workflow.candidate_workers"},
		{"columns", func(c *config.Config) { c.Ledger.DaysColumn = c.Ledger.TopicColumn }, "ledger.topic_column"},
		{"excerpt", func(c *config.Config) { c.Identifier.ExcerptSeconds = -1 }, "identifier.excerpt_seconds"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }, "notifications.ntfy_topic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if len(cfg.Languages.Models) != 4 {
		t.Fatalf("expected four sample models, got %d", len(cfg.Languages.Models))
	}
}
