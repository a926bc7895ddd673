package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.ScratchDir = filepath.Join(base, "work", "temp")
	cfgVal.Paths.TranscriptsDir = filepath.Join(base, "transcripts")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Ledger.Path = filepath.Join(base, "ledger.csv")
	cfgVal.Identifier.ModelDir = filepath.Join(base, "models", "langid")
	cfgVal.Discovery.UpdateOnStart = false
	cfgVal.Languages.Models = map[string]config.LanguageModel{}
	for _, code := range cfgVal.Languages.Accepted {
		cfgVal.Languages.Models[code] = config.LanguageModel{
			Engine: config.EngineVosk,
			Path:   filepath.Join(base, "models", "vosk-"+code),
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAcceptedLanguages overrides the accepted language set.
func WithAcceptedLanguages(codes ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Languages.Accepted = append([]string(nil), codes...)
	}
}

// WithWorkers sets the candidate worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.CandidateWorkers = n
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default reelscribe external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe", b.cfg.Identifier.Command}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0\n")
		}
		PrependPath(b.t, binDir)
	}
}

// PrependPath puts dir at the front of PATH for the duration of the test.
func PrependPath(t testing.TB, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
