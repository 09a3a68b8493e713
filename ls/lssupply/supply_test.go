package lssupply_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/gordian-engine/lockstep/ls/lssupply"
	"github.com/stretchr/testify/require"
)

func TestAlphanumericSupply_alphabet(t *testing.T) {
	t.Parallel()

	s, err := lssupply.NewRandomSupply()
	require.NoError(t, err)

	b := s.Sample(4096)
	require.Len(t, b, 4096)
	for _, c := range b {
		require.True(t, strings.IndexByte(lssupply.Alphanumeric, c) >= 0, "unexpected byte %q", c)
	}
}

func TestAlphanumericSupply_zeroLength(t *testing.T) {
	t.Parallel()

	s, err := lssupply.NewRandomSupply()
	require.NoError(t, err)

	require.Empty(t, s.Sample(0))
	require.Empty(t, s.Sample(-1))
}

func TestNewSeededSupply(t *testing.T) {
	t.Parallel()

	seed := []byte("0123456789abcdef")

	a1, err := lssupply.NewSeededSupply(seed, lsround.GeneratorA)
	require.NoError(t, err)
	a2, err := lssupply.NewSeededSupply(seed, lsround.GeneratorA)
	require.NoError(t, err)
	b, err := lssupply.NewSeededSupply(seed, lsround.GeneratorB)
	require.NoError(t, err)

	fromA1 := a1.Sample(64)
	require.Equal(t, fromA1, a2.Sample(64))
	require.False(t, bytes.Equal(fromA1, b.Sample(64)))

	// Consecutive samples differ.
	require.NotEqual(t, fromA1, a1.Sample(64))

	_, err = lssupply.NewSeededSupply([]byte("short"), lsround.GeneratorA)
	require.ErrorIs(t, err, lssupply.ErrSeedTooShort)
}
