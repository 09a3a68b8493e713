package lsjson_test

import (
	"testing"

	"github.com/gordian-engine/lockstep/ls/lscodec"
	"github.com/gordian-engine/lockstep/ls/lscodec/lsjson"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/stretchr/testify/require"
)

func TestMarshalCodec_candidate(t *testing.T) {
	t.Parallel()

	var codec lsjson.MarshalCodec

	// Bytes outside printable ASCII must survive the trip.
	in := lsround.CandidateMessage{
		Round:     lsround.Round{Number: 42},
		From:      lsround.GeneratorB,
		Candidate: lsround.NewCandidate([]byte{0, 'a', 0xff}),
	}
	b, err := codec.Marshal(lscodec.NetworkMessage{Candidate: &in})
	require.NoError(t, err)

	var out lscodec.NetworkMessage
	require.NoError(t, codec.Unmarshal(b, &out))
	require.NotNil(t, out.Candidate)
	require.Equal(t, in.Round, out.Candidate.Round)
	require.Equal(t, in.From, out.Candidate.From)
	require.True(t, in.Candidate.Equal(out.Candidate.Candidate))
}

func TestMarshalCodec_verdictKeepsWireMeaning(t *testing.T) {
	t.Parallel()

	var codec lsjson.MarshalCodec

	b, err := codec.Marshal(lscodec.NetworkMessage{
		Verdict: &lsround.VerdictMessage{Round: lsround.FirstRound, Verdict: lsround.VerdictContinue},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"Verdict":{"Round":1,"Repeat":true}}`, string(b))

	var out lscodec.NetworkMessage
	require.NoError(t, codec.Unmarshal([]byte(`{"Verdict":{"Round":3,"Repeat":false}}`), &out))
	require.Equal(t, lsround.VerdictMessage{Round: lsround.Round{Number: 3}, Verdict: lsround.VerdictStop}, *out.Verdict)
}

func TestMarshalCodec_exactlyOneField(t *testing.T) {
	t.Parallel()

	var codec lsjson.MarshalCodec

	_, err := codec.Marshal(lscodec.NetworkMessage{})
	require.ErrorIs(t, err, lscodec.ErrEmptyMessage)

	_, err = codec.Marshal(lscodec.NetworkMessage{
		Hello:  &lscodec.Hello{Participant: lsround.GeneratorA},
		Reject: &lscodec.Reject{Reason: "no"},
	})
	require.ErrorIs(t, err, lscodec.ErrMultipleMessage)

	var out lscodec.NetworkMessage
	require.ErrorIs(t, codec.Unmarshal([]byte(`{}`), &out), lscodec.ErrEmptyMessage)
	require.Error(t, codec.Unmarshal([]byte(`not json`), &out))
}

func TestMarshalCodec_hello(t *testing.T) {
	t.Parallel()

	var codec lsjson.MarshalCodec

	b, err := codec.Marshal(lscodec.NetworkMessage{
		Hello: &lscodec.Hello{Participant: lsround.GeneratorA, RunName: "brave-otter"},
	})
	require.NoError(t, err)

	var out lscodec.NetworkMessage
	require.NoError(t, codec.Unmarshal(b, &out))
	require.Equal(t, lscodec.Hello{Participant: lsround.GeneratorA, RunName: "brave-otter"}, *out.Hello)
}
