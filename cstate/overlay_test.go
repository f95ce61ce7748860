package cstate

import (
	"testing"

	"github.com/decentchain/contracts-core/collab"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestOverlayCommitMergesIntoParent(t *testing.T) {
	cur := collab.NewMemCurrency(uint256.NewInt(1))
	child := collab.NewMemChildStore()
	var a collab.AccountID
	a[0] = 1
	cur.SetBalance(a, uint256.NewInt(100))

	root := NewRoot(cur, child, nil)
	frame := root.Begin()

	frame.SetBalance(a, uint256.NewInt(250))
	key := [32]byte{9}
	_, err := frame.SetStorage(a, key, []byte("hello"), 16384)
	require.NoError(t, err)

	// Root is untouched until commit.
	require.True(t, root.GetBalance(a).Eq(uint256.NewInt(100)))
	_, ok := root.GetStorage(a, key)
	require.False(t, ok)

	root.Commit(frame)

	require.True(t, root.GetBalance(a).Eq(uint256.NewInt(250)))
	v, ok := root.GetStorage(a, key)
	require.True(t, ok)
	require.Equal(t, "hello", string(v))
}

func TestOverlayDropIsInvisible(t *testing.T) {
	cur := collab.NewMemCurrency(uint256.NewInt(1))
	child := collab.NewMemChildStore()
	var a collab.AccountID
	a[0] = 1
	cur.SetBalance(a, uint256.NewInt(100))

	root := NewRoot(cur, child, nil)
	frame := root.Begin()
	frame.SetBalance(a, uint256.NewInt(999))
	// Simulate a revert: frame is simply never committed.

	require.True(t, root.GetBalance(a).Eq(uint256.NewInt(100)))
}

func TestOverlayTransferRejectsBelowExistentialDeposit(t *testing.T) {
	cur := collab.NewMemCurrency(uint256.NewInt(10))
	child := collab.NewMemChildStore()
	var a, b collab.AccountID
	a[0], b[0] = 1, 2
	cur.SetBalance(a, uint256.NewInt(100))

	root := NewRoot(cur, child, nil)
	err := root.Transfer(a, b, uint256.NewInt(95), collab.ReasonTransfer)
	require.ErrorIs(t, err, ErrTransferFailed)
}

func TestOverlaySetStorageDeltaAccounting(t *testing.T) {
	cur := collab.NewMemCurrency(uint256.NewInt(1))
	child := collab.NewMemChildStore()
	var a collab.AccountID
	root := NewRoot(cur, child, nil)

	key := [32]byte{1}
	delta, err := root.SetStorage(a, key, []byte("abcd"), 16384)
	require.NoError(t, err)
	require.Equal(t, int64(4), delta)

	delta, err = root.SetStorage(a, key, []byte("ab"), 16384)
	require.NoError(t, err)
	require.Equal(t, int64(-2), delta)

	delta, err = root.SetStorage(a, key, nil, 16384)
	require.NoError(t, err)
	require.Equal(t, int64(-2), delta)

	_, ok := root.GetStorage(a, key)
	require.False(t, ok)
}

func TestOverlaySetStorageRejectsOversizedValue(t *testing.T) {
	cur := collab.NewMemCurrency(uint256.NewInt(1))
	child := collab.NewMemChildStore()
	var a collab.AccountID
	root := NewRoot(cur, child, nil)

	_, err := root.SetStorage(a, [32]byte{1}, make([]byte, 17000), 16384)
	require.ErrorIs(t, err, ErrValueTooLarge)
}
