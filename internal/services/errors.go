package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool        = errors.New("external tool error")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEngine              = errors.New("recognition engine error")
	ErrNotFound            = errors.New("not found")
	ErrTimeout             = errors.New("timeout")
	ErrTransient           = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Disposition is the terminal state a candidate lands in after a stage error.
type Disposition string

const (
	// DispositionSkipped marks a candidate abandoned after a provider, format,
	// configuration or engine failure.
	DispositionSkipped Disposition = "skipped"
	// DispositionDropped marks a candidate whose audio is outside the accepted
	// language set.
	DispositionDropped Disposition = "dropped"
)

// Outcome maps a per-candidate stage error to the candidate's terminal state.
// Every error is absorbed at the candidate boundary; none of them abort a run.
func Outcome(err error) Disposition {
	if errors.Is(err, ErrUnsupportedLanguage) {
		return DispositionDropped
	}
	return DispositionSkipped
}

// Retryable reports whether an operation that failed with err may succeed when
// attempted again.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound), errors.Is(err, ErrUnsupportedLanguage):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
