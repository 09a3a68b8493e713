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
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-msgio"
)

// ProtocolID is the libp2p protocol that lockstep streams are opened under.
const ProtocolID protocol.ID = "/lockstep/round/1"

// Candidates are expected to be tens of bytes;
// this bound only protects against a misbehaving peer.
const maxMessageSize = 1 << 20

const handshakeTimeout = 10 * time.Second

var (
	// ErrRejected is returned from [DialCoordinator]
	// when the coordinator refuses the generator's Hello.
	ErrRejected = errors.New("rejected by coordinator")

	// ErrHandshake is returned when the first frame on a stream is not a Hello.
	ErrHandshake = errors.New("invalid handshake")

	// ErrUnexpectedMessage is returned when a frame of the wrong kind arrives
	// after the handshake.
	ErrUnexpectedMessage = errors.New("unexpected message kind")
)

// peerStream wraps one libp2p stream with framing and a background reader.
type peerStream struct {
	log *slog.Logger

	s     network.Stream
	r     msgio.ReadCloser
	w     msgio.WriteCloser
	codec lscodec.MarshalCodec

	wmu sync.Mutex

	// Populated by readLoop, which closes incoming when it stops.
	incoming chan lscodec.NetworkMessage
	readErr  error

	closeOnce sync.Once
	closed    chan struct{}
}

func newPeerStream(log *slog.Logger, s network.Stream, codec lscodec.MarshalCodec) *peerStream {
	return &peerStream{
		log: log,

		s:     s,
		r:     msgio.NewVarintReaderSize(s, maxMessageSize),
		w:     msgio.NewVarintWriter(s),
		codec: codec,

		incoming: make(chan lscodec.NetworkMessage, 4),

		closed: make(chan struct{}),
	}
}

func (ps *peerStream) write(ctx context.Context, m lscodec.NetworkMessage) error {
	b, err := ps.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ps.wmu.Lock()
	defer ps.wmu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = ps.s.SetWriteDeadline(dl)
		defer func() { _ = ps.s.SetWriteDeadline(time.Time{}) }()
	}

	if err := ps.w.WriteMsg(b); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// read reads a single frame directly.
// It is only used during the handshake, before readLoop starts.
func (ps *peerStream) read(deadline time.Time) (lscodec.NetworkMessage, error) {
	_ = ps.s.SetReadDeadline(deadline)
	defer func() { _ = ps.s.SetReadDeadline(time.Time{}) }()

	return ps.readFrame()
}

func (ps *peerStream) readFrame() (lscodec.NetworkMessage, error) {
	var m lscodec.NetworkMessage

	b, err := ps.r.ReadMsg()
	if err != nil {
		return m, err
	}
	defer ps.r.ReleaseMsg(b)

	if err := ps.codec.Unmarshal(b, &m); err != nil {
		return m, err
	}
	return m, nil
}

// startReading begins delivering frames on ps.incoming.
func (ps *peerStream) startReading() {
	go ps.readLoop()
}

func (ps *peerStream) readLoop() {
	defer close(ps.incoming)

	for {
		m, err := ps.readFrame()
		if err != nil {
			ps.readErr = err
			return
		}

		select {
		case <-ps.closed:
			return
		case ps.incoming <- m:
			// Okay.
		}
	}
}

// receive returns the next frame from the background reader.
// readErr is safe to read once incoming is closed.
func (ps *peerStream) receive(ctx context.Context) (lscodec.NetworkMessage, error) {
	select {
	case <-ps.closed:
		return lscodec.NetworkMessage{}, lsp2p.ErrClosed
	default:
	}

	select {
	case <-ctx.Done():
		return lscodec.NetworkMessage{}, context.Cause(ctx)
	case <-ps.closed:
		return lscodec.NetworkMessage{}, lsp2p.ErrClosed
	case m, ok := <-ps.incoming:
		if !ok {
			select {
			case <-ps.closed:
				return lscodec.NetworkMessage{}, lsp2p.ErrClosed
			default:
			}
			return lscodec.NetworkMessage{}, fmt.Errorf("stream ended: %w", ps.readErr)
		}
		return m, nil
	}
}

// awaitHangup blocks until the remote end stops sending or ctx is done.
func (ps *peerStream) awaitHangup(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case _, ok := <-ps.incoming:
			if !ok {
				return nil
			}
			ps.log.Warn("Discarding frame received while waiting for hangup")
		}
	}
}

func (ps *peerStream) reject(ctx context.Context, reason string) {
	_ = ps.write(ctx, lscodec.NetworkMessage{Reject: &lscodec.Reject{Reason: reason}})
	_ = ps.s.Close()
}

func (ps *peerStream) close() error {
	var err error
	ps.closeOnce.Do(func() {
		close(ps.closed)
		err = ps.s.Close()
	})
	return err
}
