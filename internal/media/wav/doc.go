// Package wav reads and writes the linear PCM WAV files that flow between the
// normalizer, the language identifier, and the recognition engines.
//
// Reader streams fixed-size frame chunks as little-endian bytes for
// incremental recognizers; Decode/Write and the sample helpers (Downmix,
// Resample, Truncate) prepare bounded classifier excerpts.
package wav
