package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelscribe/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeDiscovery()
	c.normalizeAcquire()
	if err := c.normalizeIdentifier(); err != nil {
		return err
	}
	if err := c.normalizeLanguages(); err != nil {
		return err
	}
	c.normalizeRecognition()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = filepath.Join(c.Paths.WorkDir, "temp")
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TranscriptsDir) == "" {
		c.Paths.TranscriptsDir = defaultTranscriptsDir
	}
	if c.Paths.TranscriptsDir, err = expandPath(c.Paths.TranscriptsDir); err != nil {
		return fmt.Errorf("paths.transcripts_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLedger() error {
	if value, ok := os.LookupEnv("REELSCRIBE_LEDGER"); ok && strings.TrimSpace(value) != "" {
		c.Ledger.Path = strings.TrimSpace(value)
	}
	var err error
	if c.Ledger.Path, err = expandPath(strings.TrimSpace(c.Ledger.Path)); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	c.Ledger.TopicColumn = strings.TrimSpace(c.Ledger.TopicColumn)
	c.Ledger.DaysColumn = strings.TrimSpace(c.Ledger.DaysColumn)
	c.Ledger.OutputColumn = strings.TrimSpace(c.Ledger.OutputColumn)
	if c.Ledger.OutputColumn == "" {
		c.Ledger.OutputColumn = defaultOutputColumn
	}
	return nil
}

func (c *Config) normalizeDiscovery() {
	c.Discovery.YtDlpBinary = strings.TrimSpace(c.Discovery.YtDlpBinary)
	if c.Discovery.YtDlpBinary == "" {
		c.Discovery.YtDlpBinary = defaultYtDlpBinary
	}
}

func (c *Config) normalizeAcquire() {
	c.Acquire.AudioFormat = strings.ToLower(strings.TrimSpace(c.Acquire.AudioFormat))
	if c.Acquire.AudioFormat == "" {
		c.Acquire.AudioFormat = defaultAudioFormat
	}
}

func (c *Config) normalizeIdentifier() error {
	c.Identifier.Command = strings.TrimSpace(c.Identifier.Command)
	c.Identifier.ModelRepo = strings.TrimSpace(c.Identifier.ModelRepo)
	c.Identifier.HubURL = strings.TrimRight(strings.TrimSpace(c.Identifier.HubURL), "/")
	if c.Identifier.HubURL == "" {
		c.Identifier.HubURL = defaultHubURL
	}
	var err error
	if c.Identifier.ModelDir, err = expandPath(strings.TrimSpace(c.Identifier.ModelDir)); err != nil {
		return fmt.Errorf("identifier.model_dir: %w", err)
	}
	c.Identifier.HFToken = strings.TrimSpace(c.Identifier.HFToken)
	if c.Identifier.HFToken == "" {
		c.Identifier.HFToken = huggingFaceTokenFromEnv()
	}
	c.Identifier.FallbackLanguage = language.ToISO2(c.Identifier.FallbackLanguage)
	c.Identifier.FallbackPolicy = strings.ToLower(strings.TrimSpace(c.Identifier.FallbackPolicy))
	if c.Identifier.FallbackPolicy == "" {
		c.Identifier.FallbackPolicy = defaultFallbackPolicy
	}
	return nil
}

func (c *Config) normalizeLanguages() error {
	c.Languages.Accepted = language.NormalizeList(c.Languages.Accepted)
	if len(c.Languages.Models) == 0 {
		return nil
	}
	models := make(map[string]LanguageModel, len(c.Languages.Models))
	for code, model := range c.Languages.Models {
		key := language.ToISO2(code)
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(code))
		}
		model.Engine = strings.ToLower(strings.TrimSpace(model.Engine))
		if model.Engine == "" {
			model.Engine = EngineVosk
		}
		model.Model = strings.TrimSpace(model.Model)
		if model.Engine == EngineWhisperX && model.Model == "" {
			model.Model = defaultWhisperXRecognizeModel
		}
		if strings.TrimSpace(model.Path) != "" {
			expanded, err := expandPath(strings.TrimSpace(model.Path))
			if err != nil {
				return fmt.Errorf("languages.models.%s.path: %w", key, err)
			}
			model.Path = expanded
		}
		models[key] = model
	}
	c.Languages.Models = models
	return nil
}

func (c *Config) normalizeRecognition() {
	c.Recognition.WhisperXVADMethod = strings.ToLower(strings.TrimSpace(c.Recognition.WhisperXVADMethod))
	if c.Recognition.WhisperXVADMethod == "" {
		c.Recognition.WhisperXVADMethod = defaultWhisperXVADMethod
	}
	c.Recognition.WhisperXHuggingFace = strings.TrimSpace(c.Recognition.WhisperXHuggingFace)
	if c.Recognition.WhisperXHuggingFace == "" {
		c.Recognition.WhisperXHuggingFace = huggingFaceTokenFromEnv()
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func huggingFaceTokenFromEnv() string {
	if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
		return strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("HF_TOKEN"); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
