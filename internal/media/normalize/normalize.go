package normalize

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelscribe/internal/fileutil"
	"reelscribe/internal/media/ffprobe"
	"reelscribe/internal/services"
)

// Canonical audio properties.
const (
	Channels   = 1
	SampleRate = 16000
	BitDepth   = 16
	Codec      = "pcm_s16le"
)

const stageName = "normalize"

// Audio is a file verified to be in canonical form.
type Audio struct {
	Path       string
	Channels   int
	SampleRate int
	BitDepth   int
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Normalizer converts audio with ffmpeg and verifies it with ffprobe.
type Normalizer struct {
	ffmpegBinary  string
	ffprobeBinary string
	run           CommandRunner
	probe         ProbeFunc
}

// New constructs a Normalizer. Empty binaries default to ffmpeg and ffprobe on PATH.
func New(ffmpegBinary, ffprobeBinary string) *Normalizer {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Normalizer{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		run:           runCommand,
		probe:         ffprobe.Inspect,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (n *Normalizer) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		n.run = runner
	}
}

// WithProbe sets a custom inspection function (for testing).
func (n *Normalizer) WithProbe(probe ProbeFunc) {
	if probe != nil {
		n.probe = probe
	}
}

// Normalize converts input into a canonical WAV at output. On any failure the
// output file is removed and an error is returned.
func (n *Normalizer) Normalize(ctx context.Context, input, output string) (Audio, error) {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return Audio{}, services.Wrap(services.ErrValidation, stageName, "arguments", "input and output paths are required", nil)
	}
	if _, err := os.Stat(input); err != nil {
		return Audio{}, services.Wrap(services.ErrNotFound, stageName, "stat input", input, err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return Audio{}, services.Wrap(services.ErrExternalTool, stageName, "ensure output dir", "", err)
	}

	if err := n.run(ctx, n.ffmpegBinary, BuildArgs(input, output, -1)...); err != nil {
		_ = fileutil.RemoveIfExists(output)
		return Audio{}, services.Wrap(services.ErrExternalTool, stageName, "ffmpeg", "decode failed", err)
	}

	audio, err := n.Verify(ctx, output)
	if err != nil {
		_ = fileutil.RemoveIfExists(output)
		return Audio{}, err
	}
	return audio, nil
}

// Verify inspects path and fails unless it is canonical audio.
func (n *Normalizer) Verify(ctx context.Context, path string) (Audio, error) {
	result, err := n.probe(ctx, n.ffprobeBinary, path)
	if err != nil {
		return Audio{}, services.Wrap(services.ErrExternalTool, stageName, "ffprobe", "inspect output", err)
	}
	stream, ok := result.FirstAudioStream()
	if !ok {
		return Audio{}, services.Wrap(services.ErrValidation, stageName, "verify", "no audio stream in output", nil)
	}
	rate := stream.SampleRateHz()
	if stream.Channels != Channels || rate != SampleRate || stream.CodecName != Codec {
		msg := fmt.Sprintf("output is %s %d Hz %d ch, want %s %d Hz %d ch",
			stream.CodecName, rate, stream.Channels, Codec, SampleRate, Channels)
		return Audio{}, services.Wrap(services.ErrValidation, stageName, "verify", msg, nil)
	}
	return Audio{Path: path, Channels: Channels, SampleRate: SampleRate, BitDepth: BitDepth}, nil
}

// Excerpt writes the first seconds of input to dest in canonical form.
func (n *Normalizer) Excerpt(ctx context.Context, input string, seconds int, dest string) error {
	if seconds <= 0 {
		return fmt.Errorf("extract excerpt: invalid duration %d", seconds)
	}
	if err := n.run(ctx, n.ffmpegBinary, BuildArgs(input, dest, seconds)...); err != nil {
		_ = fileutil.RemoveIfExists(dest)
		return fmt.Errorf("ffmpeg extract excerpt: %w", err)
	}
	return nil
}

// BuildArgs returns the ffmpeg arguments converting source into a canonical
// WAV at dest. A positive durationSec limits the output to the leading
// durationSec seconds.
func BuildArgs(source, dest string, durationSec int) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
	}
	if durationSec > 0 {
		args = append(args, "-t", strconv.Itoa(durationSec))
	}
	args = append(args,
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", Codec,
		"-f", "wav",
		dest,
	)
	return args
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
