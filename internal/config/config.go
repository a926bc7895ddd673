package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the pipeline reads from and writes to.
type Paths struct {
	WorkDir        string `toml:"work_dir"`
	ScratchDir     string `toml:"scratch_dir"`
	TranscriptsDir string `toml:"transcripts_dir"`
	StateDir       string `toml:"state_dir"`
	LogDir         string `toml:"log_dir"`
}

// Ledger describes the CSV work-list consumed and annotated by a run.
type Ledger struct {
	Path         string `toml:"path"`
	TopicColumn  string `toml:"topic_column"`
	DaysColumn   string `toml:"days_column"`
	OutputColumn string `toml:"output_column"`
}

// Discovery contains video search and candidate filter settings.
type Discovery struct {
	YtDlpBinary        string `toml:"ytdlp_binary"`
	MaxResults         int    `toml:"max_results"`
	MinDurationSeconds int    `toml:"min_duration_seconds"`
	QuerySuffix        string `toml:"query_suffix"`
	UpdateOnStart      bool   `toml:"update_on_start"`
	SearchTimeout      int    `toml:"search_timeout"`
}

// Acquire contains audio download settings.
type Acquire struct {
	AudioFormat       string `toml:"audio_format"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Retries           int    `toml:"retries"`
	DownloadTimeout   int    `toml:"download_timeout"`
}

// Identifier contains spoken-language classification settings.
type Identifier struct {
	// Command is the classifier executable. It receives the excerpt path as
	// its final argument and prints ranked labels such as "hi: Hindi".
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	// ModelRepo and ModelDir locate the classifier checkpoint files that are
	// fetched from the Hugging Face hub when missing.
	ModelRepo string `toml:"model_repo"`
	ModelDir  string `toml:"model_dir"`
	HubURL    string `toml:"hub_url"`
	HFToken   string `toml:"hf_token"`
	// ExcerptSeconds bounds the amount of audio handed to the classifier.
	ExcerptSeconds int `toml:"excerpt_seconds"`
	SampleRate     int `toml:"sample_rate"`
	MaxFrames      int `toml:"max_frames"`
	// FallbackPolicy is "fallback" (tag with FallbackLanguage) or "skip"
	// (drop the candidate) when classification fails.
	FallbackLanguage string `toml:"fallback_language"`
	FallbackPolicy   string `toml:"fallback_policy"`
	Timeout          int    `toml:"timeout"`
}

// LanguageModel is the recognition engine configuration for one language.
type LanguageModel struct {
	Engine string `toml:"engine"`
	Path   string `toml:"path"`
	Model  string `toml:"model"`
}

// Languages holds the accepted language set and the language to model table.
type Languages struct {
	Accepted []string                 `toml:"accepted"`
	Models   map[string]LanguageModel `toml:"models"`
}

// Recognition contains speech recognition engine settings shared by all languages.
type Recognition struct {
	ChunkFrames         int    `toml:"chunk_frames"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	WhisperXVADMethod   string `toml:"whisperx_vad_method"`
	WhisperXHuggingFace string `toml:"whisperx_hf_token"`
	Timeout             int    `toml:"timeout"`
}

// Workflow contains orchestration settings.
type Workflow struct {
	CandidateWorkers int `toml:"candidate_workers"`
	StaleWorkHours   int `toml:"stale_work_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RetentionDays prunes reelscribe log files older than this many days; 0 keeps everything.
	RetentionDays int `toml:"retention_days"`
}

// Notifications configures ntfy delivery of run events.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for reelscribe.
//
// Configuration sections by subsystem:
//   - Paths: work, scratch, transcript, state and log directories
//   - Ledger: CSV work-list location and column names
//   - Discovery: yt-dlp search and candidate filter thresholds
//   - Acquire: audio download pacing and retries
//   - Identifier: language classifier command and excerpt bounds
//   - Languages: accepted language set and per-language recognition models
//   - Recognition: engine chunking and WhisperX options
//   - Workflow: candidate concurrency and stale file cleanup
//   - Notifications: ntfy topic for run events
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Ledger        Ledger        `toml:"ledger"`
	Discovery     Discovery     `toml:"discovery"`
	Acquire       Acquire       `toml:"acquire"`
	Identifier    Identifier    `toml:"identifier"`
	Languages     Languages     `toml:"languages"`
	Recognition   Recognition   `toml:"recognition"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into. The scratch
// directory is not created here; the language identifier creates it on demand
// and the per-work-item cleanup removes it once empty.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.TranscriptsDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio conversion.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// HistoryPath returns the SQLite run history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "reelscribe.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
