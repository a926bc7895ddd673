package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
//
// Missing recognition model files are deliberately not validation errors: the
// recognition registry reports them as warnings at startup and only the
// candidates that need the missing language are lost.
func (c *Config) Validate() error {
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateAcquire(); err != nil {
		return err
	}
	if err := c.validateIdentifier(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLedger() error {
	if c.Ledger.TopicColumn == "" {
		return errors.New("ledger.topic_column must be set")
	}
	if c.Ledger.DaysColumn == "" {
		return errors.New("ledger.days_column must be set")
	}
	if c.Ledger.TopicColumn == c.Ledger.DaysColumn {
		return errors.New("ledger.topic_column and ledger.days_column must differ")
	}
	if c.Ledger.OutputColumn == c.Ledger.TopicColumn || c.Ledger.OutputColumn == c.Ledger.DaysColumn {
		return errors.New("ledger.output_column must not overwrite an input column")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if c.Discovery.MaxResults <= 0 {
		return errors.New("discovery.max_results must be positive")
	}
	if c.Discovery.MinDurationSeconds < 0 {
		return errors.New("discovery.min_duration_seconds must not be negative")
	}
	if c.Discovery.SearchTimeout <= 0 {
		return errors.New("discovery.search_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateAcquire() error {
	switch c.Acquire.AudioFormat {
	case "mp3", "m4a", "opus", "wav", "flac", "aac", "vorbis":
	default:
		return fmt.Errorf("acquire.audio_format: unsupported value %q", c.Acquire.AudioFormat)
	}
	if c.Acquire.RequestsPerMinute < 0 {
		return errors.New("acquire.requests_per_minute must not be negative")
	}
	if c.Acquire.Retries < 0 {
		return errors.New("acquire.retries must not be negative")
	}
	if c.Acquire.DownloadTimeout <= 0 {
		return errors.New("acquire.download_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateIdentifier() error {
	if c.Identifier.Command == "" {
		return errors.New("identifier.command must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"identifier.excerpt_seconds": c.Identifier.ExcerptSeconds,
		"identifier.sample_rate":     c.Identifier.SampleRate,
		"identifier.max_frames":      c.Identifier.MaxFrames,
		"identifier.timeout":         c.Identifier.Timeout,
	}); err != nil {
		return err
	}
	switch c.Identifier.FallbackPolicy {
	case FallbackPolicyFallback:
		if c.Identifier.FallbackLanguage == "" {
			return errors.New("identifier.fallback_language must be set when identifier.fallback_policy is \"fallback\"")
		}
	case FallbackPolicySkip:
	default:
		return fmt.Errorf("identifier.fallback_policy: unsupported value %q (use %q or %q)", c.Identifier.FallbackPolicy, FallbackPolicyFallback, FallbackPolicySkip)
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if len(c.Languages.Accepted) == 0 {
		return errors.New("languages.accepted must list at least one language")
	}
	for code, model := range c.Languages.Models {
		switch model.Engine {
		case EngineVosk, EngineWhisperX:
		default:
			return fmt.Errorf("languages.models.%s.engine: unsupported value %q", code, model.Engine)
		}
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if c.Recognition.ChunkFrames <= 0 {
		return errors.New("recognition.chunk_frames must be positive")
	}
	if c.Recognition.Timeout <= 0 {
		return errors.New("recognition.timeout must be positive (seconds)")
	}
	switch c.Recognition.WhisperXVADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("recognition.whisperx_vad_method: unsupported value %q", c.Recognition.WhisperXVADMethod)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.CandidateWorkers <= 0 {
		return errors.New("workflow.candidate_workers must be positive")
	}
	if c.Workflow.StaleWorkHours < 0 {
		return errors.New("workflow.stale_work_hours must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", strings.TrimSpace(key))
		}
	}
	return nil
}
