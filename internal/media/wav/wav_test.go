package wav_test

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"reelscribe/internal/media/wav"
)

func writeFixture(t *testing.T, samples wav.Samples) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	if err := wav.Write(path, samples); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func ramp(n int) []int {
	data := make([]int, n)
	for i := range data {
		data[i] = (i % 200) - 100
	}
	return data
}

func TestInspectReportsHeader(t *testing.T) {
	path := writeFixture(t, wav.Samples{Data: ramp(8000), Channels: 2, SampleRate: 44100})

	format, err := wav.Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if format.Channels != 2 || format.SampleRate != 44100 || format.BitDepth != 16 || !format.PCM {
		t.Fatalf("unexpected format %s", format)
	}
}

func TestInspectRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := wav.Inspect(path); err == nil {
		t.Fatal("expected error for non-wav input")
	}
}

func TestReaderStreamsChunks(t *testing.T) {
	data := ramp(10000)
	path := writeFixture(t, wav.Samples{Data: data, Channels: 1, SampleRate: 16000})

	reader, err := wav.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	if f := reader.Format(); !f.PCM || f.Channels != 1 || f.BitDepth != 16 || f.SampleRate != 16000 {
		t.Fatalf("expected canonical format, got %s", reader.Format())
	}
	if reader.TotalFrames() != int64(len(data)) {
		t.Fatalf("expected %d frames, got %d", len(data), reader.TotalFrames())
	}

	var chunks, frames int
	var first []byte
	for {
		chunk, err := reader.ReadFrames(4000)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrames: %v", err)
		}
		if first == nil {
			first = chunk
		}
		chunks++
		frames += len(chunk) / 2
	}
	if chunks != 3 || frames != len(data) {
		t.Fatalf("expected 3 chunks / %d frames, got %d / %d", len(data), chunks, frames)
	}
	if got := int16(binary.LittleEndian.Uint16(first[2:])); int(got) != data[1] {
		t.Fatalf("expected little-endian sample %d, got %d", data[1], got)
	}
}

func TestOpenRejectsNonPCM16(t *testing.T) {
	path := writeFixture(t, wav.Samples{Data: ramp(100), Channels: 1, SampleRate: 16000, BitDepth: 8})
	if _, err := wav.Open(path); err == nil {
		t.Fatal("expected 8-bit input to be rejected")
	}
}

func TestDecodeDownmixResampleTruncate(t *testing.T) {
	stereo := make([]int, 0, 2*4410)
	for i := 0; i < 4410; i++ {
		stereo = append(stereo, 100, 300)
	}
	path := writeFixture(t, wav.Samples{Data: stereo, Channels: 2, SampleRate: 44100})

	decoded, err := wav.Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Frames() != 4410 {
		t.Fatalf("expected 4410 frames, got %d", decoded.Frames())
	}

	mono := wav.Downmix(decoded)
	if mono.Channels != 1 || mono.Data[0] != 200 {
		t.Fatalf("unexpected downmix result: ch=%d first=%d", mono.Channels, mono.Data[0])
	}

	resampled := wav.Resample(mono, 16000)
	if resampled.SampleRate != 16000 {
		t.Fatalf("expected 16 kHz, got %d", resampled.SampleRate)
	}
	if resampled.Frames() != 1600 {
		t.Fatalf("expected 1600 frames after resample, got %d", resampled.Frames())
	}
	if resampled.Data[10] != 200 {
		t.Fatalf("expected constant signal to survive interpolation, got %d", resampled.Data[10])
	}

	truncated := wav.Truncate(resampled, 1000)
	if truncated.Frames() != 1000 {
		t.Fatalf("expected 1000 frames, got %d", truncated.Frames())
	}
	if same := wav.Truncate(resampled, 5000); same.Frames() != 1600 {
		t.Fatalf("truncate should not grow buffers, got %d", same.Frames())
	}
}
