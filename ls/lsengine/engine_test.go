package lsengine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gordian-engine/lockstep/internal/gtest"
	"github.com/gordian-engine/lockstep/ls/lsengine"
	"github.com/gordian-engine/lockstep/ls/lsp2p/lsinmem"
	"github.com/gordian-engine/lockstep/ls/lsreport/lsreporttest"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/gordian-engine/lockstep/ls/lsround/lsroundtest"
	"github.com/gordian-engine/lockstep/ls/lssupply"
	"github.com/stretchr/testify/require"
)

// fixture wires the three roles together over an in-memory network.
type fixture struct {
	Coordinator *lsengine.Coordinator
	Generators  [2]*lsengine.Generator

	Reporter *lsreporttest.Recorder
	Verdicts *lsroundtest.VerdictLog
}

func newFixture(t *testing.T, supplies [2]lssupply.Supply, lengths [2]int) *fixture {
	t.Helper()

	n := lsinmem.NewNetwork()
	t.Cleanup(n.Close)

	log := gtest.NewLogger(t)
	fx := &fixture{
		Reporter: new(lsreporttest.Recorder),
		Verdicts: lsroundtest.NewVerdictLog(),
	}

	for p := range lsround.Participant(lsround.WorldSize) {
		cfg := lsengine.RoleConfig{
			Participant: p,
			Observer:    fx.Verdicts,
		}
		if p == lsround.Coordinator {
			cfg.CoordinatorConn = n.Coordinator()
			cfg.Reporter = fx.Reporter
		} else {
			cfg.GeneratorConn = n.Generator(p)
			cfg.Supply = supplies[p-1]
			cfg.Length = lengths[p-1]
		}

		role, err := lsengine.NewRole(log.With("p", p), cfg)
		require.NoError(t, err)
		require.Equal(t, p, role.Participant())

		switch r := role.(type) {
		case *lsengine.Coordinator:
			fx.Coordinator = r
		case *lsengine.Generator:
			fx.Generators[p-1] = r
		default:
			t.Fatalf("unexpected role type %T", role)
		}
	}

	return fx
}

// Run runs all three roles to completion and returns each Run error,
// indexed by participant ordinal.
func (fx *fixture) Run(t *testing.T, ctx context.Context) [lsround.WorldSize]error {
	t.Helper()

	roles := []lsengine.Role{fx.Coordinator, fx.Generators[0], fx.Generators[1]}
	errCh := make(chan struct {
		p   lsround.Participant
		err error
	}, len(roles))
	for _, r := range roles {
		go func() {
			errCh <- struct {
				p   lsround.Participant
				err error
			}{p: r.Participant(), err: r.Run(ctx)}
		}()
	}

	var out [lsround.WorldSize]error
	for range roles {
		res := gtest.ReceiveOrTimeout(t, errCh, gtest.ScaleMs(5000))
		out[res.p] = res.err
	}
	return out
}

func TestRoles_acceptFirstRound(t *testing.T) {
	t.Parallel()

	supplyA := lsroundtest.NewScriptedSupply("aab", "xyz")
	supplyB := lsroundtest.NewScriptedSupply("bca", "xyz")
	fx := newFixture(t, [2]lssupply.Supply{supplyA, supplyB}, [2]int{3, 3})

	for _, err := range fx.Run(t, t.Context()) {
		require.NoError(t, err)
	}

	want := lsround.AcceptedPair{
		Round:  lsround.FirstRound,
		First:  lsround.CandidateFromString("aab"),
		Second: lsround.CandidateFromString("bca"),
	}
	got, ok := fx.Coordinator.Result()
	require.True(t, ok)
	require.Equal(t, want, got)
	require.Equal(t, []lsround.AcceptedPair{want}, fx.Reporter.Pairs())

	// The second scripted value is never drawn.
	require.Equal(t, 1, supplyA.Calls())
	require.Equal(t, 1, supplyB.Calls())

	for p := range lsround.Participant(lsround.WorldSize) {
		require.Equal(t, []lsroundtest.ObservedVerdict{
			{Round: lsround.FirstRound, Verdict: lsround.VerdictStop},
		}, fx.Verdicts.For(p))
	}

	require.Equal(t, lsengine.Status{
		Participant: lsround.Coordinator,
		State:       lsengine.StateTerminated,
		Round:       lsround.FirstRound,
	}, fx.Coordinator.Status())
	require.Equal(t, lsengine.StateTerminated, fx.Generators[0].Status().State)
	require.Equal(t, lsengine.StateTerminated, fx.Generators[1].Status().State)
}

func TestRoles_verdictAgreement(t *testing.T) {
	t.Parallel()

	// Rounds 1-3 are rejected; round 4 is accepted.
	supplyA := lsroundtest.NewScriptedSupply("abc", "xyz", "q", "ab")
	supplyB := lsroundtest.NewScriptedSupply("ab", "abc", "z", "ba")
	fx := newFixture(t, [2]lssupply.Supply{supplyA, supplyB}, [2]int{3, 3})

	for _, err := range fx.Run(t, t.Context()) {
		require.NoError(t, err)
	}

	want := []lsroundtest.ObservedVerdict{
		{Round: lsround.Round{Number: 1}, Verdict: lsround.VerdictContinue},
		{Round: lsround.Round{Number: 2}, Verdict: lsround.VerdictContinue},
		{Round: lsround.Round{Number: 3}, Verdict: lsround.VerdictContinue},
		{Round: lsround.Round{Number: 4}, Verdict: lsround.VerdictStop},
	}
	for p := range lsround.Participant(lsround.WorldSize) {
		require.Equal(t, want, fx.Verdicts.For(p), "participant %s", p)
	}

	got, ok := fx.Coordinator.Result()
	require.True(t, ok)
	require.Equal(t, uint64(4), got.Round.Number)
	require.Equal(t, "ab", got.First.String())
	require.Equal(t, "ba", got.Second.String())
}

func TestRoles_emptyCandidatesAreRejected(t *testing.T) {
	t.Parallel()

	supplyA := lsroundtest.NewScriptedSupply("", "", "a")
	supplyB := lsroundtest.NewScriptedSupply("a")
	fx := newFixture(t, [2]lssupply.Supply{supplyA, supplyB}, [2]int{0, 1})

	for _, err := range fx.Run(t, t.Context()) {
		require.NoError(t, err)
	}

	got, ok := fx.Coordinator.Result()
	require.True(t, ok)
	require.Equal(t, uint64(3), got.Round.Number)
	require.Len(t, fx.Verdicts.For(lsround.GeneratorA), 3)
}

func TestRoles_terminateWithRandomSupply(t *testing.T) {
	t.Parallel()

	seed := []byte("lockstep-termination-test-seed")
	var supplies [2]lssupply.Supply
	for i, p := range lsround.Generators {
		s, err := lssupply.NewSeededSupply(seed, p)
		require.NoError(t, err)
		supplies[i] = s
	}

	// A single byte against 62 bytes over a 62-symbol alphabet
	// is accepted with probability near two thirds each round.
	fx := newFixture(t, supplies, [2]int{1, 62})

	for _, err := range fx.Run(t, t.Context()) {
		require.NoError(t, err)
	}

	got, ok := fx.Coordinator.Result()
	require.True(t, ok)
	require.True(t, lsround.Accepts(got.First, got.Second))
	require.Equal(t, 1, got.First.Len())
	require.Equal(t, 62, got.Second.Len())
	require.Less(t, got.Round.Number, uint64(200))

	// Every participant saw exactly as many rounds as the coordinator ran.
	for p := range lsround.Participant(lsround.WorldSize) {
		require.Len(t, fx.Verdicts.For(p), int(got.Round.Number))
	}
}

func TestCoordinator_reporterError(t *testing.T) {
	t.Parallel()

	supply := lsroundtest.NewScriptedSupply("a")
	fx := newFixture(t, [2]lssupply.Supply{supply, supply}, [2]int{1, 1})
	errBoom := errors.New("boom")
	fx.Reporter.Err = errBoom

	errs := fx.Run(t, t.Context())
	require.ErrorIs(t, errs[lsround.Coordinator], errBoom)

	// Generators already received the stop verdict.
	require.NoError(t, errs[lsround.GeneratorA])
	require.NoError(t, errs[lsround.GeneratorB])
}

func TestCoordinator_runTwice(t *testing.T) {
	t.Parallel()

	supply := lsroundtest.NewScriptedSupply("a")
	fx := newFixture(t, [2]lssupply.Supply{supply, supply}, [2]int{1, 1})

	for _, err := range fx.Run(t, t.Context()) {
		require.NoError(t, err)
	}

	require.ErrorIs(t, fx.Coordinator.Run(t.Context()), lsengine.ErrAlreadyRan)
	require.ErrorIs(t, fx.Generators[0].Run(t.Context()), lsengine.ErrAlreadyRan)
}
