// Package lsround contains the values exchanged by lockstep participants:
// the fixed set of [Participant] roles, the explicit [Round] context,
// generated [Candidate] strings, and the coordinator's [Verdict].
//
// The acceptance predicate, [Accepts], also lives here
// because it is a pure function of two candidates
// and every participant implementation may need to reason about it.
package lsround
