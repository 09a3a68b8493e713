package lsround_test

import (
	"testing"

	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/stretchr/testify/require"
)

func TestParseParticipant(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]lsround.Participant{
		"0":           lsround.Coordinator,
		"coordinator": lsround.Coordinator,
		"1":           lsround.GeneratorA,
		"A":           lsround.GeneratorA,
		"generator-a": lsround.GeneratorA,
		" 2 ":         lsround.GeneratorB,
		"b":           lsround.GeneratorB,
	} {
		got, err := lsround.ParseParticipant(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := lsround.ParseParticipant("3")
	require.ErrorIs(t, err, lsround.ErrUnknownParticipant)
}

func TestParticipant_roles(t *testing.T) {
	t.Parallel()

	require.False(t, lsround.Coordinator.IsGenerator())
	require.True(t, lsround.GeneratorA.IsGenerator())
	require.True(t, lsround.GeneratorB.IsGenerator())

	require.False(t, lsround.Participant(3).Valid())
	require.Equal(t, "participant(3)", lsround.Participant(3).String())
}

func TestCandidate_immutable(t *testing.T) {
	t.Parallel()

	src := []byte("abc")
	c := lsround.NewCandidate(src)

	src[0] = 'z'
	require.Equal(t, "abc", c.String())

	out := c.Bytes()
	out[1] = 'z'
	require.Equal(t, "abc", c.String())
	require.Equal(t, 3, c.Len())
}

func TestVerdict(t *testing.T) {
	t.Parallel()

	require.Equal(t, lsround.VerdictStop, lsround.VerdictFor(true))
	require.Equal(t, lsround.VerdictContinue, lsround.VerdictFor(false))

	// The wire meaning: true repeats, false stops.
	require.True(t, bool(lsround.VerdictContinue))
	require.False(t, bool(lsround.VerdictStop))

	require.True(t, lsround.VerdictStop.Accepted())
	require.Equal(t, "continue", lsround.VerdictContinue.String())
}

func TestRound_next(t *testing.T) {
	t.Parallel()

	r := lsround.FirstRound
	n := r.Next()

	require.Equal(t, uint64(1), r.Number)
	require.Equal(t, uint64(2), n.Number)
	require.Equal(t, "round 2", n.String())
}
