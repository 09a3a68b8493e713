// Package lsinmem is an in-process implementation of the lockstep transport.
//
// Each generator has a pair of unbuffered Go channels to the coordinator,
// one carrying candidates and one carrying verdicts,
// so every send is a rendezvous with the matching receive.
package lsinmem

import (
	"context"
	"sync"

	"github.com/gordian-engine/lockstep/ls/lsp2p"
	"github.com/gordian-engine/lockstep/ls/lsround"
)

// Network connects one coordinator with two generators inside a single process.
type Network struct {
	candidates [2]chan lsround.CandidateMessage
	verdicts   [2]chan lsround.VerdictMessage

	closeOnce sync.Once
	closed    chan struct{}
}

// NewNetwork returns a ready network.
// Use [*Network.Coordinator] and [*Network.Generator] to obtain each participant's end.
func NewNetwork() *Network {
	n := &Network{
		closed: make(chan struct{}),
	}
	for i := range n.candidates {
		n.candidates[i] = make(chan lsround.CandidateMessage)
		n.verdicts[i] = make(chan lsround.VerdictMessage)
	}
	return n
}

// Close closes every connection on the network.
func (n *Network) Close() {
	n.closeOnce.Do(func() {
		close(n.closed)
	})
}

// Coordinator returns a new coordinator end of the network.
func (n *Network) Coordinator() *CoordinatorConnection {
	return &CoordinatorConnection{
		n:      n,
		closed: make(chan struct{}),
	}
}

// Generator returns a new end of the network for generator p.
// It panics if p is not a generator.
func (n *Network) Generator(p lsround.Participant) *GeneratorConnection {
	idx, err := lsp2p.GeneratorIndex(p)
	if err != nil {
		panic(err)
	}
	return &GeneratorConnection{
		n:      n,
		p:      p,
		idx:    idx,
		closed: make(chan struct{}),
	}
}

// CoordinatorConnection implements [lsp2p.CoordinatorConn].
type CoordinatorConnection struct {
	n *Network

	closeOnce sync.Once
	closed    chan struct{}
}

var _ lsp2p.CoordinatorConn = (*CoordinatorConnection)(nil)

func (c *CoordinatorConnection) ReceiveCandidate(
	ctx context.Context, from lsround.Participant,
) (lsround.CandidateMessage, error) {
	idx, err := lsp2p.GeneratorIndex(from)
	if err != nil {
		return lsround.CandidateMessage{}, err
	}

	select {
	case <-ctx.Done():
		return lsround.CandidateMessage{}, context.Cause(ctx)
	case <-c.closed:
		return lsround.CandidateMessage{}, lsp2p.ErrClosed
	case <-c.n.closed:
		return lsround.CandidateMessage{}, lsp2p.ErrClosed
	case msg := <-c.n.candidates[idx]:
		return msg, nil
	}
}

func (c *CoordinatorConnection) SendVerdict(
	ctx context.Context, to lsround.Participant, msg lsround.VerdictMessage,
) error {
	idx, err := lsp2p.GeneratorIndex(to)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-c.closed:
		return lsp2p.ErrClosed
	case <-c.n.closed:
		return lsp2p.ErrClosed
	case c.n.verdicts[idx] <- msg:
		return nil
	}
}

func (c *CoordinatorConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

// GeneratorConnection implements [lsp2p.GeneratorConn].
type GeneratorConnection struct {
	n   *Network
	p   lsround.Participant
	idx int

	closeOnce sync.Once
	closed    chan struct{}
}

var _ lsp2p.GeneratorConn = (*GeneratorConnection)(nil)

func (c *GeneratorConnection) Participant() lsround.Participant {
	return c.p
}

func (c *GeneratorConnection) SendCandidate(ctx context.Context, msg lsround.CandidateMessage) error {
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-c.closed:
		return lsp2p.ErrClosed
	case <-c.n.closed:
		return lsp2p.ErrClosed
	case c.n.candidates[c.idx] <- msg:
		return nil
	}
}

func (c *GeneratorConnection) ReceiveVerdict(ctx context.Context) (lsround.VerdictMessage, error) {
	select {
	case <-ctx.Done():
		return lsround.VerdictMessage{}, context.Cause(ctx)
	case <-c.closed:
		return lsround.VerdictMessage{}, lsp2p.ErrClosed
	case <-c.n.closed:
		return lsround.VerdictMessage{}, lsp2p.ErrClosed
	case msg := <-c.n.verdicts[c.idx]:
		return msg, nil
	}
}

func (c *GeneratorConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}
