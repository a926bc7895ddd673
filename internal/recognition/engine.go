package recognition

import (
	"context"
	"encoding/json"
	"strings"
)

// Recognizer decodes one stream of audio incrementally.
type Recognizer interface {
	// AcceptWaveform consumes a chunk of little-endian 16-bit PCM and returns
	// the text of any utterance it completed, or "".
	AcceptWaveform(chunk []byte) (string, error)
	// FinalResult flushes and returns any trailing partial utterance.
	FinalResult() (string, error)
	Close()
}

// Engine is a loaded recognition model for one language.
type Engine interface {
	NewRecognizer(sampleRate int) (Recognizer, error)
	Close() error
}

// FileTranscriber is implemented by batch engines that decode a whole file
// instead of a frame stream.
type FileTranscriber interface {
	TranscribeFile(ctx context.Context, path, language string) (string, error)
}

// Factory loads the engine described by spec.
type Factory func(spec EngineSpec) (Engine, error)

// ResultText extracts "text" from a recognizer JSON result such as
// {"text": "namaste"}. Non-JSON payloads are returned trimmed.
func ResultText(payload string) string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ""
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return payload
	}
	return strings.TrimSpace(result.Text)
}
