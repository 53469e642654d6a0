package runner

import "strings"

// State is a step of the run lifecycle as seen by the orchestrator.
type State string

const (
	StateStarting  State = "STARTING"
	StateReady     State = "READY"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateAborted   State = "ABORTED"
	StateTimedOut  State = "TIMED-OUT"
	// StateLocalTimeout marks a run the orchestrator stopped waiting for. It
	// never comes from the platform.
	StateLocalTimeout State = "LOCAL-TIMEOUT"
)

// Terminal reports whether no further polling is needed.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateAborted, StateTimedOut, StateLocalTimeout:
		return true
	}
	return false
}

// Failed reports whether the platform ended the run unsuccessfully.
func (s State) Failed() bool {
	return s == StateFailed || s == StateAborted || s == StateTimedOut
}

func (s State) Lower() string {
	return strings.ToLower(string(s))
}

// Run tracks one orchestrated run.
type Run struct {
	ID            string
	ActorID       string
	DatasetID     string
	StatusMessage string
	State         State
	Polls         int
}
