// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes the streams and format sections; helper
// methods on Result expose the audio stream properties the normalizer
// verifies (codec, channel count, sample rate).
package ffprobe
