// Package lssupply provides the random source that generators draw candidates from.
package lssupply

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/gordian-engine/lockstep/ls/lsround"
	"golang.org/x/crypto/blake2b"
)

// Alphanumeric is the alphabet every [AlphanumericSupply] samples from.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Supply produces candidate bytes for a generator.
// Consecutive calls must be independent of each other.
type Supply interface {
	// Sample returns n bytes.
	// Callers validate n before calling; n == 0 returns an empty slice.
	Sample(n int) []byte
}

// ErrSeedTooShort is returned by [NewSeededSupply] for seeds under 16 bytes.
var ErrSeedTooShort = errors.New("seed must be at least 16 bytes")

// AlphanumericSupply samples uniformly from [Alphanumeric]
// using a ChaCha8 stream.
// It is safe for concurrent use.
type AlphanumericSupply struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSupply returns a supply keyed from the operating system's
// cryptographic random source.
func NewRandomSupply() (*AlphanumericSupply, error) {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("failed to read random key: %w", err)
	}
	return newSupply(key), nil
}

// NewSeededSupply returns a deterministic supply for participant p.
// The ChaCha8 key is derived from seed and p with BLAKE2b,
// so two generators sharing one run seed still draw independent streams.
func NewSeededSupply(seed []byte, p lsround.Participant) (*AlphanumericSupply, error) {
	if len(seed) < 16 {
		return nil, ErrSeedTooShort
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		panic(fmt.Errorf("BUG: blake2b without key cannot fail: %w", err))
	}
	_, _ = h.Write([]byte("lockstep/supply/v1"))
	_, _ = h.Write(seed)
	_, _ = h.Write([]byte{byte(p)})

	var key [32]byte
	copy(key[:], h.Sum(nil))
	return newSupply(key), nil
}

func newSupply(key [32]byte) *AlphanumericSupply {
	return &AlphanumericSupply{
		rng: rand.New(rand.NewChaCha8(key)),
	}
}

// Sample implements [Supply].
func (s *AlphanumericSupply) Sample(n int) []byte {
	if n <= 0 {
		return []byte{}
	}

	out := make([]byte, n)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range out {
		out[i] = Alphanumeric[s.rng.IntN(len(Alphanumeric))]
	}
	return out
}
