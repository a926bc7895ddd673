//go:build !vosk

package recognition

import "errors"

// VoskAvailable reports whether the native Vosk binding is compiled in.
func VoskAvailable() bool { return false }

func newVoskEngine(EngineSpec) (Engine, error) {
	return nil, errors.New("vosk unavailable (built without the vosk tag)")
}
