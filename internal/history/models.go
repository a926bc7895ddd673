package history

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one invocation of the pipeline over a ledger.
type Run struct {
	ID           string
	LedgerPath   string
	Status       RunStatus
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time

	// Summary counts filled by ListRuns and GetRun.
	WorkItems   int
	Transcripts int
	Candidates  int
}

// Duration returns the run wall time, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// WorkItem is the recorded outcome of one ledger row within a run.
type WorkItem struct {
	RunID          string
	Row            int
	Topic          string
	LookbackDays   int
	Discovered     int
	Eligible       int
	Transcribed    int
	TranscriptPath string
	ErrorMessage   string
	RecordedAt     time.Time
}

// Candidate is the terminal outcome of one candidate video.
type Candidate struct {
	RunID       string
	Row         int
	Ordinal     int
	CandidateID string
	Title       string
	URL         string
	State       string
	Stage       string
	Language    string
	Fallback    bool
	Error       string
	TextLength  int
	RecordedAt  time.Time
}

// DatabaseHealth captures diagnostic information about the history database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	IntegrityCheck   bool
	TotalRuns        int
	Error            string
}
