package langid

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ParsePredictions extracts the ranked labels from classifier output. Three
// shapes are accepted: {"predictions": [...]}, a bare JSON array of labels, or
// one label per line.
func ParsePredictions(output []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return nil, errors.New("classifier produced no output")
	}

	var labels []string
	switch trimmed[0] {
	case '{':
		var payload struct {
			Predictions []string `json:"predictions"`
		}
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return nil, errors.New("classifier output is not valid json")
		}
		labels = payload.Predictions
	case '[':
		if err := json.Unmarshal(trimmed, &labels); err != nil {
			return nil, errors.New("classifier output is not a json label list")
		}
	default:
		labels = strings.Split(string(trimmed), "\n")
	}

	cleaned := labels[:0]
	for _, label := range labels {
		if label = strings.TrimSpace(label); label != "" {
			cleaned = append(cleaned, label)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("classifier returned no predictions")
	}
	return cleaned, nil
}
