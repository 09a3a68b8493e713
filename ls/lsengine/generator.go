package lsengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gordian-engine/lockstep/internal/glog"
	"github.com/gordian-engine/lockstep/ls/lsp2p"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/gordian-engine/lockstep/ls/lssupply"
)

// Generator is the role of participants 1 and 2.
type Generator struct {
	log *slog.Logger

	p      lsround.Participant
	conn   lsp2p.GeneratorConn
	supply lssupply.Supply
	length int

	observer RoundObserver

	started atomic.Bool
	status  statusTracker
}

// GeneratorConfig is the configuration for [NewGenerator].
type GeneratorConfig struct {
	Participant lsround.Participant

	Conn   lsp2p.GeneratorConn
	Supply lssupply.Supply

	// Number of bytes per candidate. Zero is allowed;
	// empty candidates are simply never accepted.
	Length int

	// Optional.
	Observer RoundObserver
}

var _ Role = (*Generator)(nil)

// NewGenerator returns a generator ready to Run.
func NewGenerator(log *slog.Logger, cfg GeneratorConfig) (*Generator, error) {
	if !cfg.Participant.IsGenerator() {
		return nil, fmt.Errorf("%w: %s", lsp2p.ErrNotGenerator, cfg.Participant)
	}
	if cfg.Length < 0 {
		return nil, fmt.Errorf("%w: %s has length %d", ErrNegativeLength, cfg.Participant, cfg.Length)
	}
	if cfg.Conn == nil {
		return nil, errors.New("generator requires a connection")
	}
	if cfg.Supply == nil {
		return nil, errors.New("generator requires a supply")
	}

	obs := cfg.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	g := &Generator{
		log: log,

		p:      cfg.Participant,
		conn:   cfg.Conn,
		supply: cfg.Supply,
		length: cfg.Length,

		observer: obs,
	}
	g.status.s = Status{
		Participant: cfg.Participant,
		State:       StateGenerating,
		Round:       lsround.FirstRound,
	}
	return g, nil
}

func (g *Generator) Participant() lsround.Participant {
	return g.p
}

func (g *Generator) Status() Status {
	return g.status.get()
}

// Run generates, sends, and awaits verdicts until the coordinator accepts a round.
func (g *Generator) Run(ctx context.Context) error {
	if !g.started.CompareAndSwap(false, true) {
		return ErrAlreadyRan
	}

	for r := lsround.FirstRound; ; r = r.Next() {
		v, err := g.runRound(ctx, r)
		if err != nil {
			return fmt.Errorf("%s failed in %s: %w", g.p, r, err)
		}

		if v.Accepted() {
			g.status.set(r, StateTerminated)
			g.log.Debug("Stopping because coordinator accepted the round", "round", r.Number)
			return nil
		}
	}
}

func (g *Generator) runRound(ctx context.Context, r lsround.Round) (lsround.Verdict, error) {
	g.status.set(r, StateGenerating)
	c := g.produceCandidate()
	g.log.Debug("Generated candidate", "round", r.Number, "candidate", glog.Text(c.Bytes()))

	g.status.set(r, StateSending)
	if err := g.conn.SendCandidate(ctx, lsround.CandidateMessage{
		Round:     r,
		From:      g.p,
		Candidate: c,
	}); err != nil {
		return lsround.VerdictContinue, fmt.Errorf("failed to send candidate: %w", err)
	}

	g.status.set(r, StateAwaitingVerdict)
	v, err := g.awaitVerdict(ctx, r)
	if err != nil {
		return lsround.VerdictContinue, err
	}
	g.observer.ObserveVerdict(g.p, r, v)
	g.log.Debug("Received verdict", "round", r.Number, "verdict", v)

	return v, nil
}

func (g *Generator) produceCandidate() lsround.Candidate {
	return lsround.NewCandidate(g.supply.Sample(g.length))
}

func (g *Generator) awaitVerdict(ctx context.Context, r lsround.Round) (lsround.Verdict, error) {
	msg, err := g.conn.ReceiveVerdict(ctx)
	if err != nil {
		return lsround.VerdictContinue, fmt.Errorf("failed to receive verdict: %w", err)
	}
	if msg.Round != r {
		return lsround.VerdictContinue, fmt.Errorf("%w: verdict is for %s", ErrRoundMismatch, msg.Round)
	}
	return msg.Verdict, nil
}
