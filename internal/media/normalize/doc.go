// Package normalize converts downloaded audio into the canonical form every
// downstream stage expects: one channel, 16 kHz, 16-bit little-endian PCM in a
// WAV container.
//
// Conversion is delegated to ffmpeg. The result is re-inspected with ffprobe
// and rejected when any property drifts from the canonical format, so callers
// never see a file that only claims to be normalized. The package also cuts
// bounded excerpts for the language identifier using the same argument
// builder.
package normalize
