package lsengine

import (
	"strconv"
	"sync"

	"github.com/gordian-engine/lockstep/ls/lsround"
)

// State is the position of a participant within its round state machine.
type State uint8

const (
	_ State = iota // Zero value reserved.

	// Generator states.
	StateGenerating
	StateSending
	StateAwaitingVerdict

	// Coordinator states.
	StateAwaitingCandidates
	StateEvaluating
	StateBroadcasting

	// Shared final state, entered only after an accepted verdict.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateGenerating:
		return "generating"
	case StateSending:
		return "sending"
	case StateAwaitingVerdict:
		return "awaiting-verdict"
	case StateAwaitingCandidates:
		return "awaiting-candidates"
	case StateEvaluating:
		return "evaluating"
	case StateBroadcasting:
		return "broadcasting"
	case StateTerminated:
		return "terminated"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Status is a point-in-time snapshot of a role.
type Status struct {
	Participant lsround.Participant
	State       State
	Round       lsround.Round
}

// statusTracker holds the current status of a role
// for concurrent readers such as the debug HTTP server.
type statusTracker struct {
	mu sync.Mutex
	s  Status
}

func (t *statusTracker) set(r lsround.Round, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Round = r
	t.s.State = s
}

func (t *statusTracker) get() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}
