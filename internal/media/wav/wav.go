package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

const (
	headerBytes   = 44
	formatPCM     = 1
	bitDepthPCM16 = 16
)

// Format describes the stream properties read from a WAV header.
type Format struct {
	Channels   int
	SampleRate int
	BitDepth   int
	PCM        bool
}

func (f Format) String() string {
	codec := "non-pcm"
	if f.PCM {
		codec = "pcm"
	}
	return fmt.Sprintf("%s %d-bit %d Hz %d ch", codec, f.BitDepth, f.SampleRate, f.Channels)
}

// Inspect reads the WAV header at path.
func Inspect(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return Format{}, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	format, _, err := readHeader(file)
	return format, err
}

func readHeader(file *os.File) (Format, *gowav.Decoder, error) {
	decoder := gowav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return Format{}, nil, fmt.Errorf("%s: not a valid wav file", file.Name())
	}
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return Format{}, nil, fmt.Errorf("read wav header: %w", err)
	}
	format := Format{
		Channels:   int(decoder.NumChans),
		SampleRate: int(decoder.SampleRate),
		BitDepth:   int(decoder.BitDepth),
		PCM:        decoder.WavAudioFormat == formatPCM,
	}
	return format, decoder, nil
}

// Reader streams PCM frames from a 16-bit WAV file.
type Reader struct {
	file        *os.File
	decoder     *gowav.Decoder
	format      Format
	totalFrames int64
	buf         *audio.IntBuffer
}

// Open prepares path for streaming. Only 16-bit PCM input is accepted.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	format, decoder, err := readHeader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	if !format.PCM || format.BitDepth != bitDepthPCM16 {
		file.Close()
		return nil, fmt.Errorf("%s: unsupported sample format %s", path, format)
	}
	var total int64
	if info, statErr := file.Stat(); statErr == nil && format.Channels > 0 {
		total = (info.Size() - headerBytes) / int64(format.Channels*2)
	}
	return &Reader{file: file, decoder: decoder, format: format, totalFrames: total}, nil
}

// Format returns the stream properties.
func (r *Reader) Format() Format {
	return r.format
}

// TotalFrames estimates the number of frames in the file from its size.
func (r *Reader) TotalFrames() int64 {
	return r.totalFrames
}

// ReadFrames returns up to frames frames as interleaved little-endian 16-bit
// samples. It returns io.EOF once the stream is exhausted.
func (r *Reader) ReadFrames(frames int) ([]byte, error) {
	if frames <= 0 {
		return nil, errors.New("read frames: chunk size must be positive")
	}
	samples := frames * r.format.Channels
	if r.buf == nil || len(r.buf.Data) != samples {
		r.buf = &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: r.format.Channels, SampleRate: r.format.SampleRate},
			Data:           make([]int, samples),
			SourceBitDepth: bitDepthPCM16,
		}
	}
	n, err := r.decoder.PCMBuffer(r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}
	if n == 0 {
		return nil, io.EOF
	}
	out := make([]byte, n*2)
	for i, sample := range r.buf.Data[:n] {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(clamp16(sample))))
	}
	return out, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
