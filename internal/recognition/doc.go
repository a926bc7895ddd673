// Package recognition turns canonical WAV audio into text with a
// language-specific speech recognition engine.
//
// A Registry maps language tags to engine specifications. It is built once at
// startup and never changes; unusable entries become warnings, and only the
// candidates that need them fail. The Dispatcher initializes at most one
// engine per language, lazily and safely under concurrency, and caches it for
// the lifetime of the run.
//
// Streaming engines (Vosk, behind the "vosk" build tag) receive the audio in
// fixed-size frame chunks; batch engines (WhisperX via uvx) implement
// FileTranscriber and receive the validated file directly. Engine failures
// and panics are absorbed: the candidate yields empty text and a warning.
package recognition
