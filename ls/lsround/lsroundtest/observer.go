package lsroundtest

import (
	"sync"

	"github.com/gordian-engine/lockstep/ls/lsround"
)

// VerdictLog records every verdict observed by every participant.
// It satisfies [github.com/gordian-engine/lockstep/ls/lsengine.RoundObserver]
// and is safe to share between participants running concurrently.
type VerdictLog struct {
	mu   sync.Mutex
	seen map[lsround.Participant][]ObservedVerdict
}

// ObservedVerdict is one entry in a [VerdictLog].
type ObservedVerdict struct {
	Round   lsround.Round
	Verdict lsround.Verdict
}

func NewVerdictLog() *VerdictLog {
	return &VerdictLog{
		seen: make(map[lsround.Participant][]ObservedVerdict, lsround.WorldSize),
	}
}

func (l *VerdictLog) ObserveVerdict(p lsround.Participant, r lsround.Round, v lsround.Verdict) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[p] = append(l.seen[p], ObservedVerdict{Round: r, Verdict: v})
}

// For returns a copy of the verdicts observed by p, in observation order.
func (l *VerdictLog) For(p lsround.Participant) []ObservedVerdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ObservedVerdict, len(l.seen[p]))
	copy(out, l.seen[p])
	return out
}
