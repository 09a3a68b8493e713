// Package lsjson is a JSON implementation of [lscodec.MarshalCodec].
package lsjson

import (
	"encoding/json"
	"fmt"

	"github.com/gordian-engine/lockstep/ls/lscodec"
	"github.com/gordian-engine/lockstep/ls/lsround"
)

// MarshalCodec implements [lscodec.MarshalCodec] using encoding/json.
type MarshalCodec struct{}

var _ lscodec.MarshalCodec = MarshalCodec{}

// jsonMessage mirrors [lscodec.NetworkMessage]
// with wire-friendly representations of the lsround types.
type jsonMessage struct {
	Hello     *jsonHello     `json:",omitempty"`
	Reject    *jsonReject    `json:",omitempty"`
	Candidate *jsonCandidate `json:",omitempty"`
	Verdict   *jsonVerdict   `json:",omitempty"`
}

type jsonHello struct {
	Participant uint8
	RunName     string `json:",omitempty"`
}

type jsonReject struct {
	Reason string
}

type jsonCandidate struct {
	Round uint64
	From  uint8

	// Encoded as base64 by encoding/json.
	Data []byte
}

type jsonVerdict struct {
	Round uint64

	// Repeat carries the verdict with its wire meaning:
	// true repeats the round, false stops.
	Repeat bool
}

func (MarshalCodec) Marshal(m lscodec.NetworkMessage) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var jm jsonMessage
	switch {
	case m.Hello != nil:
		jm.Hello = &jsonHello{
			Participant: uint8(m.Hello.Participant),
			RunName:     m.Hello.RunName,
		}
	case m.Reject != nil:
		jm.Reject = &jsonReject{Reason: m.Reject.Reason}
	case m.Candidate != nil:
		jm.Candidate = &jsonCandidate{
			Round: m.Candidate.Round.Number,
			From:  uint8(m.Candidate.From),
			Data:  m.Candidate.Candidate.Bytes(),
		}
	case m.Verdict != nil:
		jm.Verdict = &jsonVerdict{
			Round:  m.Verdict.Round.Number,
			Repeat: bool(m.Verdict.Verdict),
		}
	}

	return json.Marshal(jm)
}

func (MarshalCodec) Unmarshal(b []byte, m *lscodec.NetworkMessage) error {
	var jm jsonMessage
	if err := json.Unmarshal(b, &jm); err != nil {
		return fmt.Errorf("failed to unmarshal network message: %w", err)
	}

	*m = lscodec.NetworkMessage{}
	if jm.Hello != nil {
		m.Hello = &lscodec.Hello{
			Participant: lsround.Participant(jm.Hello.Participant),
			RunName:     jm.Hello.RunName,
		}
	}
	if jm.Reject != nil {
		m.Reject = &lscodec.Reject{Reason: jm.Reject.Reason}
	}
	if jm.Candidate != nil {
		m.Candidate = &lsround.CandidateMessage{
			Round:     lsround.Round{Number: jm.Candidate.Round},
			From:      lsround.Participant(jm.Candidate.From),
			Candidate: lsround.NewCandidate(jm.Candidate.Data),
		}
	}
	if jm.Verdict != nil {
		m.Verdict = &lsround.VerdictMessage{
			Round:   lsround.Round{Number: jm.Verdict.Round},
			Verdict: lsround.Verdict(jm.Verdict.Repeat),
		}
	}

	return m.Validate()
}
