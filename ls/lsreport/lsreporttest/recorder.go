// Package lsreporttest contains a recording [lsreport.Reporter] for tests.
package lsreporttest

import (
	"context"
	"sync"

	"github.com/gordian-engine/lockstep/ls/lsreport"
	"github.com/gordian-engine/lockstep/ls/lsround"
)

// Recorder records every pair it is given.
// If Err is set, it is returned after recording.
type Recorder struct {
	Err error

	mu    sync.Mutex
	pairs []lsround.AcceptedPair
}

var _ lsreport.Reporter = (*Recorder)(nil)

func (r *Recorder) ReportAccepted(_ context.Context, pair lsround.AcceptedPair) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, pair)
	return r.Err
}

// Pairs returns a copy of the recorded pairs.
func (r *Recorder) Pairs() []lsround.AcceptedPair {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]lsround.AcceptedPair, len(r.pairs))
	copy(out, r.pairs)
	return out
}
