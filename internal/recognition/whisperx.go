package recognition

import (
	"context"
	"errors"
	"fmt"
	"os"

	"reelscribe/internal/services/whisperx"
)

type whisperXEngine struct {
	svc        *whisperx.Service
	scratchDir string
}

// NewWhisperXFactory returns a Factory producing batch WhisperX engines that
// write their intermediate output under scratchDir.
func NewWhisperXFactory(cfg whisperx.Config, scratchDir string, runner func(ctx context.Context, name string, args ...string) error) Factory {
	return func(spec EngineSpec) (Engine, error) {
		engineCfg := cfg
		engineCfg.Model = spec.ModelName
		svc := whisperx.NewService(engineCfg)
		if runner != nil {
			svc.WithCommandRunner(runner)
		}
		return &whisperXEngine{svc: svc, scratchDir: scratchDir}, nil
	}
}

func (e *whisperXEngine) NewRecognizer(int) (Recognizer, error) {
	return nil, errors.New("whisperx transcribes whole files only")
}

func (e *whisperXEngine) TranscribeFile(ctx context.Context, path, language string) (string, error) {
	if err := os.MkdirAll(e.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure whisperx scratch dir: %w", err)
	}
	outDir, err := os.MkdirTemp(e.scratchDir, "whisperx-*")
	if err != nil {
		return "", fmt.Errorf("create whisperx output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	result, err := e.svc.TranscribeFile(ctx, path, outDir, language)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func (e *whisperXEngine) Close() error { return nil }
