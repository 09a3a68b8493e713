// Package lsp2ptest contains a compliance suite
// that every lockstep transport implementation must pass.
package lsp2ptest

import (
	"context"
	"fmt"
	"testing"

	"github.com/gordian-engine/lockstep/internal/gtest"
	"github.com/gordian-engine/lockstep/ls/lsp2p"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/stretchr/testify/require"
)

// Network is the test harness view of a transport.
type Network interface {
	// Connect returns the coordinator's end
	// and the ends of generators A and B, in that order,
	// once every participant is able to exchange messages.
	Connect(ctx context.Context) (lsp2p.CoordinatorConn, [2]lsp2p.GeneratorConn, error)

	// Close releases all resources held by the network.
	Close()
}

// NetworkConstructor builds a fresh, unconnected [Network] for one subtest.
type NetworkConstructor func(t *testing.T, ctx context.Context) (Network, error)

// TestNetworkCompliance runs the compliance suite against networks built by newNet.
func TestNetworkCompliance(t *testing.T, newNet NetworkConstructor) {
	t.Run("candidates and verdicts round trip", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), gtest.ScaleMs(5000))
		defer cancel()

		coord, gens := connect(t, ctx, newNet)

		r := lsround.FirstRound
		sendErrs := sendAsync(ctx, gens[1], lsround.CandidateMessage{
			Round: r, From: lsround.GeneratorB, Candidate: lsround.CandidateFromString("bca"),
		})
		sendErrsA := sendAsync(ctx, gens[0], lsround.CandidateMessage{
			Round: r, From: lsround.GeneratorA, Candidate: lsround.CandidateFromString("aab"),
		})

		a, err := coord.ReceiveCandidate(ctx, lsround.GeneratorA)
		require.NoError(t, err)
		require.Equal(t, r, a.Round)
		require.Equal(t, lsround.GeneratorA, a.From)
		require.Equal(t, "aab", a.Candidate.String())

		b, err := coord.ReceiveCandidate(ctx, lsround.GeneratorB)
		require.NoError(t, err)
		require.Equal(t, lsround.GeneratorB, b.From)
		require.Equal(t, "bca", b.Candidate.String())

		require.NoError(t, gtest.ReceiveSoon(t, sendErrsA))
		require.NoError(t, gtest.ReceiveSoon(t, sendErrs))

		for i, g := range gens {
			verdicts := receiveAsync(ctx, g)
			require.NoError(t, coord.SendVerdict(ctx, lsround.Generators[i], lsround.VerdictMessage{
				Round: r, Verdict: lsround.VerdictStop,
			}))
			res := gtest.ReceiveOrTimeout(t, verdicts, gtest.ScaleMs(2000))
			require.NoError(t, res.err)
			require.Equal(t, lsround.VerdictMessage{Round: r, Verdict: lsround.VerdictStop}, res.msg)
		}
	})

	t.Run("messages stay ordered across rounds", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), gtest.ScaleMs(5000))
		defer cancel()

		coord, gens := connect(t, ctx, newNet)

		const nRounds = 5
		genDone := make(chan error, len(gens))
		for i, g := range gens {
			go func() {
				r := lsround.FirstRound
				for range nRounds {
					if err := g.SendCandidate(ctx, lsround.CandidateMessage{
						Round: r, From: lsround.Generators[i], Candidate: lsround.CandidateFromString(r.String()),
					}); err != nil {
						genDone <- err
						return
					}
					v, err := g.ReceiveVerdict(ctx)
					if err != nil {
						genDone <- err
						return
					}
					if v.Round != r {
						genDone <- fmt.Errorf("%s: got verdict for %s during %s", g.Participant(), v.Round, r)
						return
					}
					r = r.Next()
				}
				genDone <- nil
			}()
		}

		r := lsround.FirstRound
		for range nRounds {
			for _, p := range lsround.Generators {
				msg, err := coord.ReceiveCandidate(ctx, p)
				require.NoError(t, err)
				require.Equal(t, r, msg.Round)
				require.Equal(t, p, msg.From)
				require.Equal(t, r.String(), msg.Candidate.String())
			}
			for _, p := range lsround.Generators {
				require.NoError(t, coord.SendVerdict(ctx, p, lsround.VerdictMessage{
					Round: r, Verdict: lsround.VerdictContinue,
				}))
			}
			r = r.Next()
		}

		for range gens {
			require.NoError(t, gtest.ReceiveOrTimeout(t, genDone, gtest.ScaleMs(2000)))
		}
	})

	t.Run("empty candidate", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), gtest.ScaleMs(5000))
		defer cancel()

		coord, gens := connect(t, ctx, newNet)

		sendErrs := sendAsync(ctx, gens[0], lsround.CandidateMessage{
			Round: lsround.FirstRound, From: lsround.GeneratorA,
		})

		msg, err := coord.ReceiveCandidate(ctx, lsround.GeneratorA)
		require.NoError(t, err)
		require.Zero(t, msg.Candidate.Len())
		require.NoError(t, gtest.ReceiveSoon(t, sendErrs))
	})

	t.Run("addressing the coordinator as a generator", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), gtest.ScaleMs(5000))
		defer cancel()

		coord, _ := connect(t, ctx, newNet)

		_, err := coord.ReceiveCandidate(ctx, lsround.Coordinator)
		require.ErrorIs(t, err, lsp2p.ErrNotGenerator)

		err = coord.SendVerdict(ctx, lsround.Participant(7), lsround.VerdictMessage{})
		require.ErrorIs(t, err, lsp2p.ErrNotGenerator)
	})

	t.Run("blocked receive honors context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), gtest.ScaleMs(5000))
		defer cancel()

		coord, gens := connect(t, ctx, newNet)

		rCtx, rCancel := context.WithTimeout(ctx, gtest.ScaleMs(20))
		defer rCancel()
		_, err := coord.ReceiveCandidate(rCtx, lsround.GeneratorB)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		gCtx, gCancel := context.WithTimeout(ctx, gtest.ScaleMs(20))
		defer gCancel()
		_, err = gens[0].ReceiveVerdict(gCtx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("operations fail after close", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), gtest.ScaleMs(5000))
		defer cancel()

		coord, gens := connect(t, ctx, newNet)

		require.NoError(t, coord.Close())
		_, err := coord.ReceiveCandidate(ctx, lsround.GeneratorA)
		require.ErrorIs(t, err, lsp2p.ErrClosed)

		require.NoError(t, gens[1].Close())
		_, err = gens[1].ReceiveVerdict(ctx)
		require.ErrorIs(t, err, lsp2p.ErrClosed)
	})
}

func connect(t *testing.T, ctx context.Context, newNet NetworkConstructor) (
	lsp2p.CoordinatorConn, [2]lsp2p.GeneratorConn,
) {
	t.Helper()

	n, err := newNet(t, ctx)
	require.NoError(t, err)
	t.Cleanup(n.Close)

	coord, gens, err := n.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = coord.Close()
		for _, g := range gens {
			_ = g.Close()
		}
	})

	require.Equal(t, lsround.GeneratorA, gens[0].Participant())
	require.Equal(t, lsround.GeneratorB, gens[1].Participant())
	return coord, gens
}

func sendAsync(ctx context.Context, g lsp2p.GeneratorConn, msg lsround.CandidateMessage) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- g.SendCandidate(ctx, msg)
	}()
	return ch
}

type verdictResult struct {
	msg lsround.VerdictMessage
	err error
}

func receiveAsync(ctx context.Context, g lsp2p.GeneratorConn) <-chan verdictResult {
	ch := make(chan verdictResult, 1)
	go func() {
		msg, err := g.ReceiveVerdict(ctx)
		ch <- verdictResult{msg: msg, err: err}
	}()
	return ch
}
