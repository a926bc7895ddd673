package wav

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// Samples is a decoded interleaved PCM buffer.
type Samples struct {
	Data       []int
	Channels   int
	SampleRate int
	BitDepth   int
}

// Frames returns the number of frames in the buffer.
func (s Samples) Frames() int {
	if s.Channels <= 0 {
		return 0
	}
	return len(s.Data) / s.Channels
}

// Decode reads the full PCM payload of path.
func Decode(path string) (Samples, error) {
	file, err := os.Open(path)
	if err != nil {
		return Samples{}, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	format, decoder, err := readHeader(file)
	if err != nil {
		return Samples{}, err
	}
	if !format.PCM {
		return Samples{}, fmt.Errorf("%s: unsupported sample format %s", path, format)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Samples{}, fmt.Errorf("decode pcm: %w", err)
	}
	return Samples{
		Data:       buf.Data,
		Channels:   format.Channels,
		SampleRate: format.SampleRate,
		BitDepth:   format.BitDepth,
	}, nil
}

// Write encodes samples as a PCM WAV file at path.
func Write(path string, samples Samples) error {
	if samples.Channels <= 0 || samples.SampleRate <= 0 {
		return fmt.Errorf("write wav: invalid format %d ch %d Hz", samples.Channels, samples.SampleRate)
	}
	depth := samples.BitDepth
	if depth == 0 {
		depth = bitDepthPCM16
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	encoder := gowav.NewEncoder(file, samples.SampleRate, depth, samples.Channels, formatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: samples.Channels, SampleRate: samples.SampleRate},
		Data:           samples.Data,
		SourceBitDepth: depth,
	}
	if err := encoder.Write(buf); err != nil {
		file.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		file.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return file.Close()
}

// Downmix averages interleaved channels into a single channel.
func Downmix(s Samples) Samples {
	if s.Channels <= 1 {
		return s
	}
	frames := s.Frames()
	mono := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < s.Channels; c++ {
			sum += s.Data[i*s.Channels+c]
		}
		mono[i] = sum / s.Channels
	}
	return Samples{Data: mono, Channels: 1, SampleRate: s.SampleRate, BitDepth: s.BitDepth}
}

// Resample converts mono samples to rate with linear interpolation.
func Resample(s Samples, rate int) Samples {
	if rate <= 0 || s.SampleRate == rate || len(s.Data) == 0 || s.Channels != 1 {
		return s
	}
	ratio := float64(s.SampleRate) / float64(rate)
	outLen := int(int64(len(s.Data)) * int64(rate) / int64(s.SampleRate))
	if outLen < 1 {
		outLen = 1
	}
	out := make([]int, outLen)
	last := len(s.Data) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = s.Data[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int(math.Round(float64(s.Data[idx])*(1-frac) + float64(s.Data[idx+1])*frac))
	}
	return Samples{Data: out, Channels: 1, SampleRate: rate, BitDepth: s.BitDepth}
}

// Truncate keeps at most maxFrames frames.
func Truncate(s Samples, maxFrames int) Samples {
	if maxFrames <= 0 || s.Frames() <= maxFrames {
		return s
	}
	s.Data = s.Data[:maxFrames*s.Channels]
	return s
}

func clamp16(v int) int {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return v
	}
}
