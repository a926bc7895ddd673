package recognition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"reelscribe/internal/config"
	"reelscribe/internal/logging"
	"reelscribe/internal/media/wav"
	"reelscribe/internal/services"
	"reelscribe/internal/textutil"
)

const (
	stageName          = "transcribe"
	defaultChunkFrames = 4000
)

// SupportedSampleRates are the input rates engines accept.
var SupportedSampleRates = []int{8000, 16000, 32000, 44100, 48000}

// Options configures a Dispatcher.
type Options struct {
	ChunkFrames int
	Logger      *slog.Logger
	// Factories maps backend names to engine loaders. Missing backends fall
	// back to the built-in Vosk loader.
	Factories map[string]Factory
}

type engineSlot struct {
	once   sync.Once
	engine Engine
	err    error
}

// Dispatcher routes audio to the engine registered for its language.
type Dispatcher struct {
	registry    *Registry
	factories   map[string]Factory
	chunkFrames int
	logger      *slog.Logger

	mu      sync.Mutex
	engines map[string]*engineSlot
}

// NewDispatcher constructs a Dispatcher over registry.
func NewDispatcher(registry *Registry, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	chunk := opts.ChunkFrames
	if chunk <= 0 {
		chunk = defaultChunkFrames
	}
	factories := map[string]Factory{config.EngineVosk: newVoskEngine}
	for name, factory := range opts.Factories {
		factories[name] = factory
	}
	return &Dispatcher{
		registry:    registry,
		factories:   factories,
		chunkFrames: chunk,
		logger:      logging.NewComponentLogger(logger, "recognition"),
		engines:     make(map[string]*engineSlot),
	}
}

// Transcribe decodes the canonical WAV at path with the engine for tag.
// Registry and validation failures are returned as errors for the caller's
// candidate; engine failures are logged and yield empty text.
func (d *Dispatcher) Transcribe(ctx context.Context, path, tag string) (string, error) {
	logger := logging.WithContext(ctx, d.logger)

	spec, err := d.registry.Lookup(tag)
	if err != nil {
		return "", err
	}
	engine, err := d.engine(spec)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "load engine", spec.String(), err)
	}

	reader, err := wav.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, stageName, "open audio", "", err)
	}
	defer reader.Close()
	if err := ValidateFormat(reader.Format()); err != nil {
		return "", services.Wrap(services.ErrValidation, stageName, "validate audio", "", err)
	}

	text, err := d.decode(ctx, logger, engine, reader, path, spec.Language)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", services.Wrap(services.ErrTimeout, stageName, "decode", "", ctxErr)
		}
		logging.WarnWithContext(logger, "recognition engine failed; candidate yields no text", "engine_failed",
			logging.String("engine", spec.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the model files and that the audio is intact"),
			logging.String(logging.FieldImpact, "candidate contributes no transcript segment"),
		)
		return "", nil
	}
	return text, nil
}

// ValidateFormat checks that audio is mono 16-bit PCM at a supported rate.
func ValidateFormat(format wav.Format) error {
	if !format.PCM || format.BitDepth != 16 {
		return fmt.Errorf("audio must be 16-bit PCM, got %s", format)
	}
	if format.Channels != 1 {
		return fmt.Errorf("audio must be mono, got %d channels", format.Channels)
	}
	if !slices.Contains(SupportedSampleRates, format.SampleRate) {
		return fmt.Errorf("unsupported sample rate %d Hz", format.SampleRate)
	}
	return nil
}

func (d *Dispatcher) engine(spec EngineSpec) (Engine, error) {
	d.mu.Lock()
	slot, ok := d.engines[spec.Language]
	if !ok {
		slot = &engineSlot{}
		d.engines[spec.Language] = slot
	}
	d.mu.Unlock()

	slot.once.Do(func() {
		factory, ok := d.factories[spec.Backend]
		if !ok {
			slot.err = fmt.Errorf("no loader for engine %q", spec.Backend)
			return
		}
		d.logger.Info("loading recognition engine",
			logging.String("language", spec.Language),
			logging.String("engine", spec.String()),
			logging.String(logging.FieldEventType, "engine_loading"),
		)
		slot.engine, slot.err = safeLoad(factory, spec)
	})
	return slot.engine, slot.err
}

func safeLoad(factory Factory, spec EngineSpec) (engine Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine, err = nil, fmt.Errorf("engine loader panicked: %v", r)
		}
	}()
	return factory(spec)
}

func (d *Dispatcher) decode(ctx context.Context, logger *slog.Logger, engine Engine, reader *wav.Reader, path, tag string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: panic: %v", services.ErrEngine, r)
		}
	}()

	if batch, ok := engine.(FileTranscriber); ok {
		out, err := batch.TranscribeFile(ctx, path, tag)
		if err != nil {
			return "", fmt.Errorf("%w: %w", services.ErrEngine, err)
		}
		return textutil.NormalizeSpace(out), nil
	}

	rec, err := engine.NewRecognizer(reader.Format().SampleRate)
	if err != nil {
		return "", fmt.Errorf("%w: %w", services.ErrEngine, err)
	}
	defer rec.Close()

	sampler := logging.NewProgressSampler(25)
	total := reader.TotalFrames()
	var parts []string
	var frames int64
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		chunk, readErr := reader.ReadFrames(d.chunkFrames)
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return "", readErr
		}
		partial, err := rec.AcceptWaveform(chunk)
		if err != nil {
			return "", fmt.Errorf("%w: %w", services.ErrEngine, err)
		}
		if partial = strings.TrimSpace(partial); partial != "" {
			parts = append(parts, partial)
		}
		frames += int64(len(chunk) / 2)
		if total > 0 {
			percent := float64(frames) / float64(total) * 100
			if sampler.ShouldLog(percent, stageName) {
				logger.Debug("recognition progress",
					logging.Float64("percent", percent),
					logging.String(logging.FieldEventType, "recognition_progress"),
				)
			}
		}
	}
	final, err := rec.FinalResult()
	if err != nil {
		return "", fmt.Errorf("%w: %w", services.ErrEngine, err)
	}
	if final = strings.TrimSpace(final); final != "" {
		parts = append(parts, final)
	}
	return textutil.NormalizeSpace(strings.Join(parts, " ")), nil
}

// Close releases every engine loaded so far.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for tag, slot := range d.engines {
		if slot.engine == nil {
			continue
		}
		if err := slot.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s engine: %w", tag, err))
		}
	}
	d.engines = make(map[string]*engineSlot)
	return errors.Join(errs...)
}
