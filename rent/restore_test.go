package rent

import (
	"testing"

	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/cstate"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// TestTombstoneRoundTrip exercises spec §8.5: instantiate -> populate ->
// evict -> restore from a donor whose delta and code_hash reproduce the
// tombstone hash restores exactly the original live storage.
func TestTombstoneRoundTrip(t *testing.T) {
	e, overlay, currency, child, _ := newWorld(t, 1000)
	donor := acct(1)
	dest := acct(2)
	codeHash := collab.CodeHash{0xAA}

	currency.SetBalance(donor, uint256.NewInt(500))
	trie := collab.TrieID("donor-trie")
	overlay.SetInfo(donor, cstate.NewAlive(trie, codeHash, 8, 0, cstate.Bounded(1000)))
	child.Set(trie, [32]byte{1}, []byte("v1"))
	child.Set(trie, [32]byte{2}, []byte("v2"))

	root := child.Root(trie)
	tombHash := tombstoneHash(root, codeHash)
	overlay.SetInfo(dest, &cstate.ContractInfo{Tombstone: &cstate.TombstoneInfo{Hash: tombHash}})

	err := e.RestoreTo(overlay, donor, dest, codeHash, 0, false, nil)
	require.NoError(t, err)

	_, donorAlive := overlay.GetInfo(donor)
	require.False(t, donorAlive)

	destInfo, ok := overlay.GetInfo(dest)
	require.True(t, ok)
	require.True(t, destInfo.IsAlive())
	require.Equal(t, trie, destInfo.Alive.TrieID)
	require.True(t, overlay.GetBalance(dest).Eq(uint256.NewInt(500)))
	require.True(t, overlay.GetBalance(donor).IsZero())

	v, ok := child.Get(trie, [32]byte{1})
	require.True(t, ok)
	require.Equal(t, "v1", string(v))
}

func TestRestoreRejectsPerturbedDelta(t *testing.T) {
	e, overlay, currency, child, _ := newWorld(t, 1000)
	donor := acct(1)
	dest := acct(2)
	codeHash := collab.CodeHash{0xAA}

	currency.SetBalance(donor, uint256.NewInt(500))
	trie := collab.TrieID("donor-trie")
	overlay.SetInfo(donor, cstate.NewAlive(trie, codeHash, 8, 0, cstate.Unlimited()))
	child.Set(trie, [32]byte{1}, []byte("v1"))

	root := child.Root(trie)
	tombHash := tombstoneHash(root, codeHash)
	overlay.SetInfo(dest, &cstate.ContractInfo{Tombstone: &cstate.TombstoneInfo{Hash: tombHash}})

	// Perturb: claim a delta that doesn't match what was actually frozen.
	err := e.RestoreTo(overlay, donor, dest, codeHash, 0, false, [][32]byte{{1}})
	require.ErrorIs(t, err, ErrTombstoneMismatch)

	// Donor storage and info must be untouched.
	v, ok := child.Get(trie, [32]byte{1})
	require.True(t, ok)
	require.Equal(t, "v1", string(v))
	_, ok = overlay.GetInfo(donor)
	require.True(t, ok)
}

func TestRestoreRejectsLiveDestination(t *testing.T) {
	e, overlay, currency, _, _ := newWorld(t, 1000)
	donor := acct(1)
	dest := acct(2)
	codeHash := collab.CodeHash{0xAA}
	currency.SetBalance(donor, uint256.NewInt(500))
	overlay.SetInfo(donor, cstate.NewAlive(collab.TrieID("t"), codeHash, 8, 0, cstate.Unlimited()))
	overlay.SetInfo(dest, cstate.NewAlive(collab.TrieID("u"), codeHash, 8, 0, cstate.Unlimited()))

	err := e.RestoreTo(overlay, donor, dest, codeHash, 0, false, nil)
	require.ErrorIs(t, err, ErrDestinationNotTombstone)
}

func TestRestoreRejectsDonorWrittenThisBlock(t *testing.T) {
	e, overlay, currency, _, blocks := newWorld(t, 1000)
	donor := acct(1)
	dest := acct(2)
	codeHash := collab.CodeHash{0xAA}
	currency.SetBalance(donor, uint256.NewInt(500))

	alive := cstate.NewAlive(collab.TrieID("t"), codeHash, 8, 0, cstate.Unlimited())
	block := blocks.n
	alive.Alive.LastWrite = &block
	overlay.SetInfo(donor, alive)
	overlay.SetInfo(dest, &cstate.ContractInfo{Tombstone: &cstate.TombstoneInfo{Hash: [32]byte{9}}})

	err := e.RestoreTo(overlay, donor, dest, codeHash, 0, false, nil)
	require.ErrorIs(t, err, ErrRestoreDonorWrittenThisBlock)
}
