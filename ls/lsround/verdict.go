package lsround

// Verdict is the coordinator's decision for a round.
// Its value follows the wire meaning:
// true means the round was rejected and every participant repeats,
// false means the round was accepted and every participant stops.
type Verdict bool

const (
	VerdictContinue Verdict = true
	VerdictStop     Verdict = false
)

// VerdictFor converts the result of [Accepts] into a Verdict.
func VerdictFor(accepted bool) Verdict {
	return Verdict(!accepted)
}

// Accepted reports whether v ends the run.
func (v Verdict) Accepted() bool {
	return v == VerdictStop
}

func (v Verdict) String() string {
	if v.Accepted() {
		return "stop"
	}
	return "continue"
}
