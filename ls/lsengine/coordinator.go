package lsengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordian-engine/lockstep/internal/glog"
	"github.com/gordian-engine/lockstep/ls/lsp2p"
	"github.com/gordian-engine/lockstep/ls/lsreport"
	"github.com/gordian-engine/lockstep/ls/lsround"
)

// Coordinator is the role of participant 0.
type Coordinator struct {
	log *slog.Logger

	conn     lsp2p.CoordinatorConn
	reporter lsreport.Reporter
	observer RoundObserver

	started atomic.Bool
	status  statusTracker

	resultMu sync.Mutex
	result   *lsround.AcceptedPair
}

// CoordinatorConfig is the configuration for [NewCoordinator].
type CoordinatorConfig struct {
	Conn     lsp2p.CoordinatorConn
	Reporter lsreport.Reporter

	// Optional.
	Observer RoundObserver
}

var _ Role = (*Coordinator)(nil)

// NewCoordinator returns a coordinator ready to Run.
func NewCoordinator(log *slog.Logger, cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Conn == nil {
		return nil, errors.New("coordinator requires a connection")
	}
	if cfg.Reporter == nil {
		return nil, errors.New("coordinator requires a reporter")
	}

	obs := cfg.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	c := &Coordinator{
		log: log,

		conn:     cfg.Conn,
		reporter: cfg.Reporter,
		observer: obs,
	}
	c.status.s = Status{
		Participant: lsround.Coordinator,
		State:       StateAwaitingCandidates,
		Round:       lsround.FirstRound,
	}
	return c, nil
}

func (c *Coordinator) Participant() lsround.Participant {
	return lsround.Coordinator
}

func (c *Coordinator) Status() Status {
	return c.status.get()
}

// Result returns the accepted pair once Run has returned nil.
func (c *Coordinator) Result() (lsround.AcceptedPair, bool) {
	c.resultMu.Lock()
	defer c.resultMu.Unlock()
	if c.result == nil {
		return lsround.AcceptedPair{}, false
	}
	return *c.result, true
}

// Run executes rounds until one is accepted.
// The accepted pair is delivered to the reporter before Run returns nil.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRan
	}

	for r := lsround.FirstRound; ; r = r.Next() {
		pair, accepted, err := c.runRound(ctx, r)
		if err != nil {
			return fmt.Errorf("coordinator failed in %s: %w", r, err)
		}
		if !accepted {
			continue
		}

		if err := c.reporter.ReportAccepted(ctx, pair); err != nil {
			return fmt.Errorf("failed to report accepted pair: %w", err)
		}

		c.resultMu.Lock()
		c.result = &pair
		c.resultMu.Unlock()

		c.status.set(r, StateTerminated)
		c.log.Info(
			"Accepted candidates",
			"round", r.Number,
			"first", glog.Text(pair.First.Bytes()),
			"second", glog.Text(pair.Second.Bytes()),
		)
		return nil
	}
}

func (c *Coordinator) runRound(ctx context.Context, r lsround.Round) (
	pair lsround.AcceptedPair, accepted bool, err error,
) {
	c.status.set(r, StateAwaitingCandidates)
	c.log.Debug("Waiting for candidates", "round", r.Number)

	var got [len(lsround.Generators)]lsround.Candidate
	for i, p := range lsround.Generators {
		got[i], err = c.receiveCandidate(ctx, r, p)
		if err != nil {
			return pair, false, err
		}
	}

	c.status.set(r, StateEvaluating)
	accepted = lsround.Accepts(got[0], got[1])
	v := lsround.VerdictFor(accepted)
	c.log.Debug(
		"Evaluated round",
		"round", r.Number,
		"first", glog.Text(got[0].Bytes()),
		"second", glog.Text(got[1].Bytes()),
		"verdict", v,
	)

	c.status.set(r, StateBroadcasting)
	if err := c.broadcastVerdict(ctx, r, v); err != nil {
		return pair, false, err
	}
	c.observer.ObserveVerdict(lsround.Coordinator, r, v)

	return lsround.AcceptedPair{
		Round:  r,
		First:  got[0],
		Second: got[1],
	}, accepted, nil
}

func (c *Coordinator) receiveCandidate(
	ctx context.Context, r lsround.Round, from lsround.Participant,
) (lsround.Candidate, error) {
	msg, err := c.conn.ReceiveCandidate(ctx, from)
	if err != nil {
		return lsround.Candidate{}, fmt.Errorf("failed to receive candidate from %s: %w", from, err)
	}

	if msg.From != from {
		return lsround.Candidate{}, fmt.Errorf(
			"%w: received from %s, message claims %s", ErrUnexpectedSender, from, msg.From,
		)
	}
	if msg.Round != r {
		return lsround.Candidate{}, fmt.Errorf(
			"%w: candidate from %s is for %s", ErrRoundMismatch, from, msg.Round,
		)
	}

	return msg.Candidate, nil
}

// broadcastVerdict sends v to generator A and then generator B.
// Both sends complete before the next round's receives begin.
func (c *Coordinator) broadcastVerdict(ctx context.Context, r lsround.Round, v lsround.Verdict) error {
	msg := lsround.VerdictMessage{Round: r, Verdict: v}
	for _, p := range lsround.Generators {
		if err := c.conn.SendVerdict(ctx, p, msg); err != nil {
			return fmt.Errorf("failed to send verdict to %s: %w", p, err)
		}
	}
	return nil
}
