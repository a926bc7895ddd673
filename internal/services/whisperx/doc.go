// Package whisperx runs WhisperX through uvx to transcribe a WAV file in one
// batch and reads the plain text back from its JSON output.
//
// Configuration options (model, CUDA, VAD method) are passed via Config.
package whisperx
