package lsengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordian-engine/lockstep/ls/lsp2p"
	"github.com/gordian-engine/lockstep/ls/lsreport"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/gordian-engine/lockstep/ls/lssupply"
)

var (
	// ErrRoundMismatch is returned when a message for a round
	// other than the participant's current round arrives.
	ErrRoundMismatch = errors.New("message round does not match current round")

	// ErrUnexpectedSender is returned when a candidate claims to come from
	// a generator other than the one it was received from.
	ErrUnexpectedSender = errors.New("candidate sender does not match connection")

	// ErrNegativeLength is returned for a generator configured with a negative length.
	ErrNegativeLength = errors.New("candidate length must not be negative")

	// ErrAlreadyRan is returned when Run is called more than once on a role.
	ErrAlreadyRan = errors.New("role has already run")
)

// Role is one participant's state machine.
type Role interface {
	Participant() lsround.Participant

	// Run executes rounds until an accepted verdict,
	// or until a transport error or context cancellation.
	Run(ctx context.Context) error

	// Status may be called concurrently with Run.
	Status() Status
}

// RoundObserver is notified once per round, after a participant has the round's verdict.
// The coordinator notifies after both sends complete;
// a generator notifies after its receive.
//
// Observers may be shared between roles running concurrently.
type RoundObserver interface {
	ObserveVerdict(p lsround.Participant, r lsround.Round, v lsround.Verdict)
}

// RoleConfig holds the configuration for every kind of role.
// Fields that do not apply to the selected participant are ignored.
type RoleConfig struct {
	Participant lsround.Participant

	// Coordinator only.
	CoordinatorConn lsp2p.CoordinatorConn
	Reporter        lsreport.Reporter

	// Generators only.
	GeneratorConn lsp2p.GeneratorConn
	Supply        lssupply.Supply
	Length        int

	// Optional.
	Observer RoundObserver
}

// NewRole returns the role implementation for cfg.Participant.
func NewRole(log *slog.Logger, cfg RoleConfig) (Role, error) {
	switch {
	case cfg.Participant == lsround.Coordinator:
		c, err := NewCoordinator(log, CoordinatorConfig{
			Conn:     cfg.CoordinatorConn,
			Reporter: cfg.Reporter,
			Observer: cfg.Observer,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case cfg.Participant.IsGenerator():
		g, err := NewGenerator(log, GeneratorConfig{
			Participant: cfg.Participant,
			Conn:        cfg.GeneratorConn,
			Supply:      cfg.Supply,
			Length:      cfg.Length,
			Observer:    cfg.Observer,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("cannot build role: %w: %s", lsround.ErrUnknownParticipant, cfg.Participant)
	}
}

type nopObserver struct{}

func (nopObserver) ObserveVerdict(lsround.Participant, lsround.Round, lsround.Verdict) {}
