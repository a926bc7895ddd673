package pipeline

import (
	"context"
	"time"

	"reelscribe/internal/acquire"
	"reelscribe/internal/discovery"
	"reelscribe/internal/history"
	"reelscribe/internal/langid"
	"reelscribe/internal/media/normalize"
	"reelscribe/internal/notifications"
)

// Searcher finds candidate videos for a query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []discovery.Candidate
	Update(ctx context.Context) error
}

// Acquirer downloads a candidate's audio into a directory.
type Acquirer interface {
	Acquire(ctx context.Context, candidate discovery.Candidate, dir string) (acquire.Audio, error)
}

// Normalizer converts audio to the canonical recognition format.
type Normalizer interface {
	Normalize(ctx context.Context, input, output string) (normalize.Audio, error)
}

// LanguageIdentifier tags normalized audio with a spoken language.
type LanguageIdentifier interface {
	Identify(ctx context.Context, path string) (langid.Identification, error)
}

// Transcriber turns normalized audio into text with the engine for tag.
type Transcriber interface {
	Transcribe(ctx context.Context, path, tag string) (string, error)
}

// Recorder persists run history. Implemented by *history.Store.
type Recorder interface {
	BeginRun(ctx context.Context, id, ledgerPath string) error
	FinishRun(ctx context.Context, id string, status history.RunStatus, message string) error
	RecordWorkItem(ctx context.Context, item history.WorkItem) error
	RecordCandidate(ctx context.Context, c history.Candidate) error
}

// Deps bundles the collaborators an Orchestrator drives.
type Deps struct {
	Searcher   Searcher
	Acquirer   Acquirer
	Normalizer Normalizer
	Identifier LanguageIdentifier
	Dispatcher Transcriber
	// History is optional; a nil Recorder disables run history.
	History Recorder
	// Notifier is optional; nil disables run notifications.
	Notifier notifications.Service
	// Now is the clock used by the candidate filter. Defaults to time.Now.
	Now func() time.Time
}
