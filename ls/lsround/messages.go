package lsround

// CandidateMessage is what a generator sends to the coordinator.
type CandidateMessage struct {
	Round     Round
	From      Participant
	Candidate Candidate
}

// VerdictMessage is what the coordinator sends to each generator.
type VerdictMessage struct {
	Round   Round
	Verdict Verdict
}

// AcceptedPair is the pair of candidates that ended a run,
// in generator order.
type AcceptedPair struct {
	Round  Round
	First  Candidate
	Second Candidate
}
