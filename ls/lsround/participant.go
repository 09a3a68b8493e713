package lsround

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Participant is one of the three fixed roles in a lockstep run.
// Its integer value is the participant's stable ordinal.
type Participant uint8

const (
	Coordinator Participant = iota
	GeneratorA
	GeneratorB
)

// WorldSize is the exact number of participants in every run.
const WorldSize = 3

// Generators lists the generator participants
// in the order the coordinator receives from them each round.
var Generators = [...]Participant{GeneratorA, GeneratorB}

// ErrUnknownParticipant is returned by [ParseParticipant]
// for input that names no participant.
var ErrUnknownParticipant = errors.New("unknown participant")

// Valid reports whether p is one of the three defined participants.
func (p Participant) Valid() bool {
	return p <= GeneratorB
}

// IsGenerator reports whether p is one of the two generators.
func (p Participant) IsGenerator() bool {
	return p == GeneratorA || p == GeneratorB
}

func (p Participant) String() string {
	switch p {
	case Coordinator:
		return "coordinator"
	case GeneratorA:
		return "generator-a"
	case GeneratorB:
		return "generator-b"
	default:
		return "participant(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseParticipant parses an ordinal ("0", "1", "2")
// or a name ("coordinator", "a", "generator-b", ...).
func ParseParticipant(s string) (Participant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "coordinator", "root":
		return Coordinator, nil
	case "1", "a", "generator-a":
		return GeneratorA, nil
	case "2", "b", "generator-b":
		return GeneratorB, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownParticipant, s)
}
