package lslibp2p

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordian-engine/lockstep/ls/lscodec"
	"github.com/gordian-engine/lockstep/ls/lsp2p"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// GeneratorConfig is the configuration for [DialCoordinator].
type GeneratorConfig struct {
	HostConfig

	// Must be a generator.
	Participant lsround.Participant

	// Full multiaddr of the coordinator, including its /p2p/ component.
	Coordinator ma.Multiaddr
}

// GeneratorConnection implements [lsp2p.GeneratorConn] over a libp2p stream.
// It owns its libp2p host, which is closed with the connection.
type GeneratorConnection struct {
	h  host.Host
	ps *peerStream
	p  lsround.Participant

	closeOnce sync.Once
	closed    chan struct{}
}

var _ lsp2p.GeneratorConn = (*GeneratorConnection)(nil)

// DialCoordinator starts a libp2p host for a generator,
// connects to the coordinator, and completes the handshake.
func DialCoordinator(ctx context.Context, log *slog.Logger, cfg GeneratorConfig) (*GeneratorConnection, error) {
	if _, err := lsp2p.GeneratorIndex(cfg.Participant); err != nil {
		return nil, err
	}
	if cfg.Coordinator == nil {
		return nil, errors.New("coordinator address required")
	}

	info, err := peer.AddrInfoFromP2pAddr(cfg.Coordinator)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinator address %s: %w", cfg.Coordinator, err)
	}

	h, err := cfg.newHost()
	if err != nil {
		return nil, err
	}

	conn, err := handshake(ctx, log, h, *info, cfg)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	return conn, nil
}

func handshake(
	ctx context.Context, log *slog.Logger, h host.Host, info peer.AddrInfo, cfg GeneratorConfig,
) (*GeneratorConnection, error) {
	if err := h.Connect(ctx, info); err != nil {
		return nil, fmt.Errorf("failed to connect to coordinator: %w", err)
	}

	s, err := h.NewStream(ctx, info.ID, ProtocolID)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream to coordinator: %w", err)
	}

	ps := newPeerStream(log, s, cfg.codec())
	if err := ps.write(ctx, lscodec.NetworkMessage{
		Hello: &lscodec.Hello{Participant: cfg.Participant, RunName: cfg.RunName},
	}); err != nil {
		_ = s.Reset()
		return nil, fmt.Errorf("failed to send hello: %w", err)
	}

	deadline := time.Now().Add(handshakeTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	m, err := ps.read(deadline)
	if err != nil {
		_ = s.Reset()
		return nil, fmt.Errorf("failed to read handshake reply: %w", err)
	}

	switch {
	case m.Reject != nil:
		_ = s.Reset()
		return nil, fmt.Errorf("%w: %s", ErrRejected, m.Reject.Reason)
	case m.Hello == nil || m.Hello.Participant != lsround.Coordinator:
		_ = s.Reset()
		return nil, ErrHandshake
	}

	if cfg.RunName != "" && m.Hello.RunName != cfg.RunName {
		log.Warn(
			"Coordinator reported a different run name",
			"want", cfg.RunName, "got", m.Hello.RunName,
		)
	}

	ps.startReading()
	return &GeneratorConnection{
		h:  h,
		ps: ps,
		p:  cfg.Participant,

		closed: make(chan struct{}),
	}, nil
}

func (c *GeneratorConnection) Participant() lsround.Participant {
	return c.p
}

func (c *GeneratorConnection) SendCandidate(ctx context.Context, msg lsround.CandidateMessage) error {
	select {
	case <-c.closed:
		return lsp2p.ErrClosed
	default:
	}

	return c.ps.write(ctx, lscodec.NetworkMessage{Candidate: &msg})
}

func (c *GeneratorConnection) ReceiveVerdict(ctx context.Context) (lsround.VerdictMessage, error) {
	select {
	case <-c.closed:
		return lsround.VerdictMessage{}, lsp2p.ErrClosed
	default:
	}

	m, err := c.ps.receive(ctx)
	if err != nil {
		return lsround.VerdictMessage{}, err
	}
	if m.Verdict == nil {
		return lsround.VerdictMessage{}, ErrUnexpectedMessage
	}
	return *m.Verdict, nil
}

// Close closes the stream to the coordinator and shuts down the host.
func (c *GeneratorConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = errors.Join(c.ps.close(), c.h.Close())
	})
	return err
}
