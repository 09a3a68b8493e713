package lsdebug

import (
	"sync"

	"github.com/gordian-engine/lockstep/ls/lsround"
)

// History is a bounded in-memory record of observed verdicts.
// It satisfies [github.com/gordian-engine/lockstep/ls/lsengine.RoundObserver].
type History struct {
	mu      sync.Mutex
	max     int
	entries []RoundEntry
}

// RoundEntry is one observed verdict, as served on /rounds.
type RoundEntry struct {
	Participant string `json:"participant"`
	Round       uint64 `json:"round"`
	Verdict     string `json:"verdict"`
}

// NewHistory returns a History that keeps at most max entries,
// discarding the oldest first.
func NewHistory(max int) *History {
	if max <= 0 {
		panic("BUG: history size must be positive")
	}
	return &History{max: max}
}

func (h *History) ObserveVerdict(p lsround.Participant, r lsround.Round, v lsround.Verdict) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == h.max {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, RoundEntry{
		Participant: p.String(),
		Round:       r.Number,
		Verdict:     v.String(),
	})
}

// Entries returns a copy of the recorded entries.
func (h *History) Entries() []RoundEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]RoundEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
