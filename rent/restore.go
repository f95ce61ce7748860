package rent

import (
	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/cstate"
	"github.com/holiman/uint256"
)

// RestoreTo validates and applies a restoration from a live donor contract
// to a tombstoned destination (spec §4.6). It is best-effort: a failure
// here must never invalidate the surrounding call (spec §4.5), so callers
// (the deferred-action replay in contracts/runtime.go) are expected to
// ignore a returned error beyond logging it.
//
// The donor's subtree, projected to exclude the keys named in delta, must
// hash together with codeHash to exactly the tombstone stored at dest. The
// projection is verified via ChildStore.RootExcluding before any mutation,
// so a mismatch leaves the donor's storage completely untouched (spec
// §8.5's "a one-bit perturbation in the delta ... leaves donor storage
// intact").
func (e *Engine) RestoreTo(overlay *cstate.Overlay, donor, dest collab.AccountID, codeHash collab.CodeHash, rentAllowance uint64, unlimitedAllowance bool, delta [][32]byte) error {
	destInfo, destOk := overlay.GetInfo(dest)
	if !destOk || !destInfo.IsTombstone() {
		return ErrDestinationNotTombstone
	}

	donorInfo, donorOk := overlay.GetInfo(donor)
	if !donorOk || !donorInfo.IsAlive() {
		return ErrContractNotFound
	}
	donorAlive := donorInfo.Alive

	currentBlock := e.blocks.CurrentBlock()
	if donorAlive.LastWrite != nil && *donorAlive.LastWrite == currentBlock {
		return ErrRestoreDonorWrittenThisBlock
	}

	projectedRoot := e.child.RootExcluding(donorAlive.TrieID, delta)
	gotHash := tombstoneHash(projectedRoot, codeHash)
	if gotHash != destInfo.Tombstone.Hash {
		return ErrTombstoneMismatch
	}

	// The hash matched: commit to deleting the delta keys from what is now
	// the restored contract's subtree (still named by donor's TrieID —
	// ownership moves with the ContractInfo, not the underlying keys).
	var deltaOctets uint64
	for _, k := range delta {
		if v, ok := e.child.Get(donorAlive.TrieID, k); ok {
			deltaOctets += uint64(len(v))
			e.child.Delete(donorAlive.TrieID, k)
		}
	}

	newSize := donorAlive.StorageSize
	if deltaOctets > newSize {
		newSize = 0
	} else {
		newSize -= deltaOctets
	}

	allowance := cstate.Bounded(rentAllowance)
	if unlimitedAllowance {
		allowance = cstate.Unlimited()
	}
	restored := cstate.AliveInfo{
		TrieID:        donorAlive.TrieID,
		StorageSize:   newSize,
		CodeHash:      codeHash,
		RentAllowance: allowance,
		// deduct_block resets to the current block: rent accounting
		// restarts cleanly at the point the tombstone is replaced by a live
		// contract (SPEC_FULL.md Open Question (b)).
		DeductBlock: currentBlock,
		// last_write carries the donor's forward unchanged (SPEC_FULL.md
		// Open Question (b), spec §9).
		LastWrite: donorAlive.LastWrite,
	}

	donorBalance := overlay.GetBalance(donor)
	destBalance := new(uint256.Int).Add(overlay.GetBalance(dest), donorBalance)
	overlay.SetBalance(donor, uint256.NewInt(0))
	overlay.SetBalance(dest, destBalance)
	overlay.SetInfo(dest, &cstate.ContractInfo{Alive: &restored})
	overlay.SetInfo(donor, nil)
	return nil
}
