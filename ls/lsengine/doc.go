// Package lsengine runs the lockstep round state machine for one participant.
//
// [NewRole] selects, once, the implementation matching the configured participant:
// a [*Coordinator] for ordinal 0, or a [*Generator] for ordinals 1 and 2.
// Each role's Run method executes rounds until the coordinator's verdict
// accepts a pair of candidates, then returns.
//
// A round always completes in the same order across the three participants:
// the coordinator receives from generator A, then from generator B,
// evaluates [lsround.Accepts], and sends the verdict to A, then to B.
// Every message carries its round number,
// and a participant receiving a message for any other round fails with [ErrRoundMismatch].
package lsengine
