// Package lsroundtest contains fixtures for tests of lockstep participants.
package lsroundtest

import (
	"sync"
)

// ScriptedSupply returns a fixed sequence of values from Sample,
// regardless of the requested length.
// Once the script is exhausted, the final value is repeated.
//
// It satisfies [github.com/gordian-engine/lockstep/ls/lssupply.Supply].
type ScriptedSupply struct {
	mu     sync.Mutex
	script []string
	calls  int
}

// NewScriptedSupply returns a supply that yields values in order.
// At least one value is required.
func NewScriptedSupply(values ...string) *ScriptedSupply {
	if len(values) == 0 {
		panic("BUG: NewScriptedSupply requires at least one value")
	}
	return &ScriptedSupply{script: values}
}

func (s *ScriptedSupply) Sample(int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := min(s.calls, len(s.script)-1)
	s.calls++
	return []byte(s.script[i])
}

// Calls returns how many times Sample has been called.
func (s *ScriptedSupply) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
