package pipeline

import (
	"log/slog"
	"time"

	"reelscribe/internal/acquire"
	"reelscribe/internal/config"
	"reelscribe/internal/discovery"
	"reelscribe/internal/history"
	"reelscribe/internal/langid"
	"reelscribe/internal/logging"
	"reelscribe/internal/media/normalize"
	"reelscribe/internal/notifications"
	"reelscribe/internal/recognition"
	"reelscribe/internal/services/whisperx"
)

// Components are the production collaborators built from configuration.
type Components struct {
	Searcher   *discovery.Searcher
	Downloader *acquire.Downloader
	Normalizer *normalize.Normalizer
	Identifier *langid.Identifier
	Registry   *recognition.Registry
	Dispatcher *recognition.Dispatcher
	Notifier   notifications.Service
}

// BuildComponents wires the production collaborators for cfg. The
// ModelRegistry is resolved once here; its warnings are logged, not returned.
func BuildComponents(cfg *config.Config, logger *slog.Logger) *Components {
	if logger == nil {
		logger = logging.NewNop()
	}
	normalizer := normalize.New(cfg.FFmpegBinary(), cfg.FFprobeBinary())
	registry := recognition.NewRegistry(cfg.Languages)
	for _, warning := range registry.Warnings() {
		logging.WarnWithContext(logger, "language model registry entry unusable", "model_registry_warning",
			logging.String("detail", warning),
			logging.String(logging.FieldErrorHint, "fix [languages.models] or run reelscribe doctor"),
			logging.String(logging.FieldImpact, "candidates in this language are skipped"),
		)
	}
	wxCfg := whisperx.Config{
		CUDAEnabled: cfg.Recognition.WhisperXCUDAEnabled,
		VADMethod:   cfg.Recognition.WhisperXVADMethod,
		HFToken:     cfg.Recognition.WhisperXHuggingFace,
	}
	dispatcher := recognition.NewDispatcher(registry, recognition.Options{
		ChunkFrames: cfg.Recognition.ChunkFrames,
		Logger:      logger,
		Factories: map[string]recognition.Factory{
			config.EngineWhisperX: recognition.NewWhisperXFactory(wxCfg, cfg.Paths.ScratchDir, nil),
		},
	})
	return &Components{
		Searcher: discovery.NewSearcher(cfg.Discovery.YtDlpBinary,
			time.Duration(cfg.Discovery.SearchTimeout)*time.Second, logger),
		Downloader: acquire.New(acquire.Options{
			Binary:            cfg.Discovery.YtDlpBinary,
			AudioFormat:       cfg.Acquire.AudioFormat,
			RequestsPerMinute: cfg.Acquire.RequestsPerMinute,
			Retries:           cfg.Acquire.Retries,
			Timeout:           time.Duration(cfg.Acquire.DownloadTimeout) * time.Second,
			Logger:            logger,
		}),
		Normalizer: normalizer,
		Identifier: langid.New(cfg.Identifier, cfg.Paths.ScratchDir, normalizer, logger),
		Registry:   registry,
		Dispatcher: dispatcher,
		Notifier:   notifications.NewService(cfg),
	}
}

// Deps adapts the components to the orchestrator's collaborator set.
func (c *Components) Deps(store *history.Store) Deps {
	deps := Deps{
		Searcher:   c.Searcher,
		Acquirer:   c.Downloader,
		Normalizer: c.Normalizer,
		Identifier: c.Identifier,
		Dispatcher: c.Dispatcher,
		Notifier:   c.Notifier,
	}
	if store != nil {
		deps.History = store
	}
	return deps
}

// Close releases the cached recognition engines.
func (c *Components) Close() error {
	if c == nil || c.Dispatcher == nil {
		return nil
	}
	return c.Dispatcher.Close()
}
