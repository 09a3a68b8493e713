// Package lscodec defines the envelope that lockstep participants
// exchange over a byte-oriented transport,
// and the [MarshalCodec] interface that serializes it.
package lscodec

import (
	"errors"

	"github.com/gordian-engine/lockstep/ls/lsround"
)

// NetworkMessage is the envelope for every frame on the wire.
// Exactly one field must be set.
type NetworkMessage struct {
	Hello     *Hello
	Reject    *Reject
	Candidate *lsround.CandidateMessage
	Verdict   *lsround.VerdictMessage
}

// Hello is the first frame on a new stream.
// A generator sends it to announce itself;
// the coordinator echoes a Hello with its own participant to accept.
type Hello struct {
	Participant lsround.Participant

	// RunName lets operators confirm that all three processes belong to the same run.
	// It is informational only.
	RunName string
}

// Reject is the coordinator's reply to a Hello it refuses.
type Reject struct {
	Reason string
}

var (
	ErrEmptyMessage    = errors.New("network message has no field set")
	ErrMultipleMessage = errors.New("network message has more than one field set")
)

// Validate reports whether exactly one field of m is set.
func (m NetworkMessage) Validate() error {
	n := 0
	if m.Hello != nil {
		n++
	}
	if m.Reject != nil {
		n++
	}
	if m.Candidate != nil {
		n++
	}
	if m.Verdict != nil {
		n++
	}

	switch n {
	case 0:
		return ErrEmptyMessage
	case 1:
		return nil
	default:
		return ErrMultipleMessage
	}
}

// MarshalCodec converts NetworkMessage values to and from bytes.
type MarshalCodec interface {
	Marshal(NetworkMessage) ([]byte, error)
	Unmarshal([]byte, *NetworkMessage) error
}
