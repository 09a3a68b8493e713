package lsround

import "strconv"

// Round is the explicit context of one generate-send-evaluate-broadcast cycle.
// It is passed by value; advancing produces a new Round.
type Round struct {
	Number uint64
}

// FirstRound is the round every participant starts in.
var FirstRound = Round{Number: 1}

// Next returns the round following r.
func (r Round) Next() Round {
	return Round{Number: r.Number + 1}
}

func (r Round) String() string {
	return "round " + strconv.FormatUint(r.Number, 10)
}
