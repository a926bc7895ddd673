//go:build vosk

package recognition

import (
	"errors"
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"
)

func init() {
	vosk.SetLogLevel(-1)
}

// VoskAvailable reports whether the native Vosk binding is compiled in.
func VoskAvailable() bool { return true }

type voskEngine struct {
	model *vosk.VoskModel
}

func newVoskEngine(spec EngineSpec) (Engine, error) {
	model, err := vosk.NewModel(spec.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model %s: %w", spec.ModelPath, err)
	}
	return &voskEngine{model: model}, nil
}

func (e *voskEngine) NewRecognizer(sampleRate int) (Recognizer, error) {
	rec, err := vosk.NewRecognizer(e.model, float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("create vosk recognizer: %w", err)
	}
	rec.SetWords(1)
	return &voskRecognizer{rec: rec}, nil
}

func (e *voskEngine) Close() error {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

type voskRecognizer struct {
	rec *vosk.VoskRecognizer
}

func (r *voskRecognizer) AcceptWaveform(chunk []byte) (string, error) {
	switch r.rec.AcceptWaveform(chunk) {
	case -1:
		return "", errors.New("vosk rejected waveform chunk")
	case 0:
		return "", nil
	default:
		return ResultText(r.rec.Result()), nil
	}
}

func (r *voskRecognizer) FinalResult() (string, error) {
	return ResultText(r.rec.FinalResult()), nil
}

func (r *voskRecognizer) Close() {
	if r.rec != nil {
		r.rec.Free()
		r.rec = nil
	}
}
