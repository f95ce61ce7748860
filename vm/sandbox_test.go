package vm

import (
	"testing"

	"github.com/decentchain/contracts-core/gastype"
	"github.com/stretchr/testify/require"
)

func TestBoundsCheckAcceptsInRangeAccess(t *testing.T) {
	require.NoError(t, boundsCheck(1024, 100, 200))
	require.NoError(t, boundsCheck(1024, 1024, 0)) // zero-length read at the very edge is fine
}

func TestBoundsCheckRejectsOverrun(t *testing.T) {
	err := boundsCheck(1024, 1000, 100)
	require.ErrorIs(t, err, ErrMemoryAccessOutOfBounds)
}

func TestBoundsCheckRejectsPointerOverflow(t *testing.T) {
	// ptr alone already exceeds memLen, so any non-zero length overruns.
	err := boundsCheck(1024, 4294967295, 1)
	require.ErrorIs(t, err, ErrMemoryAccessOutOfBounds)
}

func TestMemoryLimitBytesScalesWithPages(t *testing.T) {
	s := gastype.Default()
	require.Equal(t, s.MaxMemoryPages*pageSize, memoryLimitBytes(s))
}
