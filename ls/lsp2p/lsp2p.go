// Package lsp2p defines the point-to-point links between lockstep participants.
//
// The coordinator holds one [CoordinatorConn] reaching both generators;
// each generator holds one [GeneratorConn] reaching the coordinator.
// Messages between any two participants are delivered in the order they were sent.
//
// Implementations live in subpackages:
// [github.com/gordian-engine/lockstep/ls/lsp2p/lsinmem] for a single process,
// and [github.com/gordian-engine/lockstep/ls/lsp2p/lslibp2p] for separate processes.
package lsp2p

import (
	"context"
	"errors"

	"github.com/gordian-engine/lockstep/ls/lsround"
)

var (
	// ErrClosed is returned from any operation on a connection after Close.
	ErrClosed = errors.New("connection closed")

	// ErrNotGenerator is returned when a generator operation
	// is addressed to a participant that is not a generator.
	ErrNotGenerator = errors.New("participant is not a generator")
)

// CoordinatorConn is the coordinator's side of the network.
type CoordinatorConn interface {
	// ReceiveCandidate blocks until the next candidate message from the given generator arrives.
	// Messages from the other generator are left queued.
	ReceiveCandidate(ctx context.Context, from lsround.Participant) (lsround.CandidateMessage, error)

	// SendVerdict delivers msg to the given generator.
	SendVerdict(ctx context.Context, to lsround.Participant, msg lsround.VerdictMessage) error

	Close() error
}

// GeneratorConn is one generator's side of the network.
type GeneratorConn interface {
	// Participant is the generator this connection belongs to.
	Participant() lsround.Participant

	// SendCandidate delivers msg to the coordinator.
	SendCandidate(ctx context.Context, msg lsround.CandidateMessage) error

	// ReceiveVerdict blocks until the coordinator's next verdict arrives.
	ReceiveVerdict(ctx context.Context) (lsround.VerdictMessage, error)

	Close() error
}

// GeneratorIndex maps a generator to its index in [lsround.Generators].
// It returns an error wrapping [ErrNotGenerator] for any other participant.
func GeneratorIndex(p lsround.Participant) (int, error) {
	switch p {
	case lsround.GeneratorA:
		return 0, nil
	case lsround.GeneratorB:
		return 1, nil
	}
	return -1, &ParticipantError{Participant: p, Err: ErrNotGenerator}
}

// ParticipantError annotates a transport error with the participant involved.
type ParticipantError struct {
	Participant lsround.Participant
	Err         error
}

func (e *ParticipantError) Error() string {
	return e.Participant.String() + ": " + e.Err.Error()
}

func (e *ParticipantError) Unwrap() error {
	return e.Err
}
