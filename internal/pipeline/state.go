package pipeline

import (
	"context"

	"reelscribe/internal/services"
)

// State is a candidate's position in the per-candidate state machine.
type State string

const (
	StateDiscovered  State = "discovered"
	StateEligible    State = "eligible"
	StateDropped     State = "dropped"
	StateAcquired    State = "acquired"
	StateNormalized  State = "normalized"
	StateTagged      State = "tagged"
	StateTranscribed State = "transcribed"
	StateSkipped     State = "skipped"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	switch s {
	case StateDropped, StateSkipped, StateTranscribed:
		return true
	default:
		return false
	}
}

// Stage names used in logs and history.
const (
	StageDiscover   = "discover"
	StageFilter     = "filter"
	StageAcquire    = "acquire"
	StageNormalize  = "normalize"
	StageIdentify   = "identify"
	StageTranscribe = "transcribe"
	StageAssemble   = "assemble"
)

// transition is one row of the candidate stage table. A candidate in from
// runs the stage and advances to done; a failure lands it in the state
// returned by failurePolicy.
type transition struct {
	stage string
	from  State
	done  State
	run   func(o *Orchestrator, ctx context.Context, w *candidateWork) error
}

var transitions = []transition{
	{stage: StageAcquire, from: StateEligible, done: StateAcquired, run: (*Orchestrator).acquireStage},
	{stage: StageNormalize, from: StateAcquired, done: StateNormalized, run: (*Orchestrator).normalizeStage},
	{stage: StageIdentify, from: StateNormalized, done: StateTagged, run: (*Orchestrator).identifyStage},
	{stage: StageTranscribe, from: StateTagged, done: StateTranscribed, run: (*Orchestrator).transcribeStage},
}

// failurePolicy maps every stage error to a terminal candidate state.
// Audio outside the accepted language set is dropped; everything else
// (provider, format, configuration, engine) is skipped.
func failurePolicy(err error) State {
	switch services.Outcome(err) {
	case services.DispositionDropped:
		return StateDropped
	default:
		return StateSkipped
	}
}

func transitionFrom(state State) (transition, bool) {
	for _, t := range transitions {
		if t.from == state {
			return t, true
		}
	}
	return transition{}, false
}
