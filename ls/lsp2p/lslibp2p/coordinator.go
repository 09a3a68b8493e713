package lslibp2p

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/lockstep/ls/lscodec"
	"github.com/gordian-engine/lockstep/ls/lscodec/lsjson"
	"github.com/gordian-engine/lockstep/ls/lsp2p"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// DefaultListenAddr is used when a HostConfig has no ListenAddrs.
const DefaultListenAddr = "/ip4/127.0.0.1/tcp/0"

// HostConfig is the configuration shared by coordinator and generator hosts.
type HostConfig struct {
	// Multiaddrs to listen on. Defaults to [DefaultListenAddr].
	ListenAddrs []string

	// Defaults to [lsjson.MarshalCodec].
	Codec lscodec.MarshalCodec

	// Exchanged during the handshake and logged on mismatch.
	RunName string
}

func (c HostConfig) newHost() (host.Host, error) {
	addrs := c.ListenAddrs
	if len(addrs) == 0 {
		addrs = []string{DefaultListenAddr}
	}
	h, err := libp2p.New(libp2p.ListenAddrStrings(addrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create libp2p host: %w", err)
	}
	return h, nil
}

func (c HostConfig) codec() lscodec.MarshalCodec {
	if c.Codec == nil {
		return lsjson.MarshalCodec{}
	}
	return c.Codec
}

// Coordinator is the libp2p host for the coordinator participant.
// It accepts exactly one stream from each generator.
type Coordinator struct {
	log *slog.Logger

	h       host.Host
	codec   lscodec.MarshalCodec
	runName string

	mu      sync.Mutex
	joined  *bitset.BitSet // Indexed by participant ordinal.
	streams [2]*peerStream

	ready chan struct{}
}

// NewCoordinator starts a libp2p host that accepts generator streams.
// Call [*Coordinator.AwaitGenerators] to obtain the connection once both have joined.
func NewCoordinator(log *slog.Logger, cfg HostConfig) (*Coordinator, error) {
	h, err := cfg.newHost()
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		log: log,

		h:       h,
		codec:   cfg.codec(),
		runName: cfg.RunName,

		joined: bitset.New(lsround.WorldSize),

		ready: make(chan struct{}),
	}
	h.SetStreamHandler(ProtocolID, c.handleStream)

	return c, nil
}

// Addrs returns the dialable multiaddrs of the coordinator,
// each including the /p2p/ peer ID component that [DialCoordinator] requires.
func (c *Coordinator) Addrs() ([]ma.Multiaddr, error) {
	return peer.AddrInfoToP2pAddrs(&peer.AddrInfo{
		ID:    c.h.ID(),
		Addrs: c.h.Addrs(),
	})
}

// AwaitGenerators blocks until both generators have completed the handshake.
func (c *Coordinator) AwaitGenerators(ctx context.Context) (*CoordinatorConnection, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("stopped waiting for generators: %w", context.Cause(ctx))
	case <-c.ready:
		// Okay.
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return &CoordinatorConnection{
		streams: c.streams,
		closed:  make(chan struct{}),
	}, nil
}

// Close shuts down the underlying host,
// resetting any streams that are still open.
func (c *Coordinator) Close() error {
	return c.h.Close()
}

func (c *Coordinator) handleStream(s network.Stream) {
	remote := s.Conn().RemotePeer()
	log := c.log.With("remote", remote.String())

	ps := newPeerStream(log, s, c.codec)

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()

	m, err := ps.read(time.Now().Add(handshakeTimeout))
	if err != nil {
		log.Info("Failed to read handshake", "err", err)
		_ = s.Reset()
		return
	}
	if m.Hello == nil {
		log.Info("First frame was not a Hello")
		ps.reject(ctx, ErrHandshake.Error())
		return
	}

	p := m.Hello.Participant
	log = log.With("p", p)
	idx, err := lsp2p.GeneratorIndex(p)
	if err != nil {
		log.Info("Rejecting stream from non-generator")
		ps.reject(ctx, err.Error())
		return
	}

	if c.runName != "" && m.Hello.RunName != "" && m.Hello.RunName != c.runName {
		log.Warn(
			"Generator reported a different run name",
			"want", c.runName, "got", m.Hello.RunName,
		)
	}

	c.mu.Lock()
	if c.joined.Test(uint(p)) {
		c.mu.Unlock()
		log.Info("Rejecting duplicate generator")
		ps.reject(ctx, fmt.Sprintf("%s already joined", p))
		return
	}
	c.joined.Set(uint(p))
	c.mu.Unlock()

	if err := ps.write(ctx, lscodec.NetworkMessage{
		Hello: &lscodec.Hello{Participant: lsround.Coordinator, RunName: c.runName},
	}); err != nil {
		log.Info("Failed to acknowledge handshake", "err", err)
		_ = s.Reset()

		c.mu.Lock()
		c.joined.Clear(uint(p))
		c.mu.Unlock()
		return
	}

	ps.startReading()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.streams[idx] = ps
	log.Debug("Generator joined", "joined", c.joined.Count())

	if c.streams[0] != nil && c.streams[1] != nil {
		close(c.ready)
	}
}

// CoordinatorConnection implements [lsp2p.CoordinatorConn] over libp2p streams.
type CoordinatorConnection struct {
	streams [2]*peerStream

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
	case <-c.closed:
		return lsround.CandidateMessage{}, lsp2p.ErrClosed
	default:
	}

	m, err := c.streams[idx].receive(ctx)
	if err != nil {
		return lsround.CandidateMessage{}, &lsp2p.ParticipantError{Participant: from, Err: err}
	}
	if m.Candidate == nil {
		return lsround.CandidateMessage{}, &lsp2p.ParticipantError{Participant: from, Err: ErrUnexpectedMessage}
	}
	return *m.Candidate, nil
}

func (c *CoordinatorConnection) SendVerdict(
	ctx context.Context, to lsround.Participant, msg lsround.VerdictMessage,
) error {
	idx, err := lsp2p.GeneratorIndex(to)
	if err != nil {
		return err
	}

	select {
	case <-c.closed:
		return lsp2p.ErrClosed
	default:
	}

	if err := c.streams[idx].write(ctx, lscodec.NetworkMessage{Verdict: &msg}); err != nil {
		return &lsp2p.ParticipantError{Participant: to, Err: err}
	}
	return nil
}

// Drain blocks until both generators have closed their streams, or ctx is done.
// Calling Drain after the final verdict and before closing the host
// lets the last verdicts reach the generators.
func (c *CoordinatorConnection) Drain(ctx context.Context) error {
	for i, ps := range c.streams {
		if err := ps.awaitHangup(ctx); err != nil {
			return &lsp2p.ParticipantError{Participant: lsround.Generators[i], Err: err}
		}
	}
	return nil
}

func (c *CoordinatorConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		for _, ps := range c.streams {
			if cErr := ps.close(); cErr != nil && err == nil {
				err = cErr
			}
		}
	})
	return err
}
