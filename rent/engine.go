// Package rent is the Rent Engine (C6): per-block rent accounting against a
// contract's storage footprint, eviction into a tombstone, and restoration
// from a donor whose pre-image reproduces that tombstone hash (spec §4.6).
//
// There is no teacher analog for state rent — Ethereum dropped it before
// shipping any retained form — so this package is built directly against
// spec §4.6 and §9's design notes, in the same "single transition function
// with an explicit enum result" shape consensus/result.go favors over
// multiple return values.
package rent

import (
	"golang.org/x/crypto/blake2b"

	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/cstate"
	"github.com/decentchain/contracts-core/gastype"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/erigontech/erigon-lib/log/v3"
	"github.com/holiman/uint256"
)

// Outcome is the rent engine's single transition's result (spec §4.6).
type Outcome uint8

const (
	RentOk Outcome = iota
	Evicted
)

// Engine computes and applies rent, evicts contracts whose balance can't
// cover it, and validates restorations (spec §4.6).
type Engine struct {
	schedule gastype.Schedule
	child    collab.ChildStore
	blocks   collab.BlockSource

	// tombstones records the hashes of the most recent evictions this
	// engine performed. Nothing reads it back: RestoreTo takes the
	// destination's tombstone from the overlay.
	tombstones *lru.Cache[collab.AccountID, [32]byte]
}

// New builds a rent engine against the given schedule and collaborators.
func New(schedule gastype.Schedule, child collab.ChildStore, blocks collab.BlockSource) *Engine {
	cache, _ := lru.New[collab.AccountID, [32]byte](256)
	return &Engine{schedule: schedule, child: child, blocks: blocks, tombstones: cache}
}

// Transition runs the rent engine's single transition against account as of
// the current block (spec §4.6). It is invoked opportunistically on every
// touch of a contract and by claim_surcharge.
func (e *Engine) Transition(overlay *cstate.Overlay, account collab.AccountID) (Outcome, error) {
	return e.transitionAt(overlay, account, e.blocks.CurrentBlock())
}

// transitionAt is Transition parameterized over the "current" block, so
// ClaimSurcharge can back-date a signed caller's view per spec §4.6's
// SignedClaimHandicap.
func (e *Engine) transitionAt(overlay *cstate.Overlay, account collab.AccountID, asOfBlock uint64) (Outcome, error) {
	ci, ok := overlay.GetInfo(account)
	if !ok {
		return RentOk, ErrContractNotFound
	}
	if ci.IsTombstone() {
		// Tombstones own no storage and accrue no rent (spec §3 invariant).
		return RentOk, nil
	}
	alive := ci.Alive

	var blocksDue uint64
	if asOfBlock > alive.DeductBlock {
		blocksDue = asOfBlock - alive.DeductBlock
	}

	balance := overlay.GetBalance(account)
	idealRent := e.idealRent(alive, balance, blocksDue)

	tombstoneDeposit := uint256.NewInt(e.schedule.TombstoneDeposit)
	balanceCoversDeposit := balance.Cmp(tombstoneDeposit) >= 0

	if idealRent.IsZero() && balanceCoversDeposit {
		next := *alive
		next.DeductBlock = asOfBlock
		overlay.SetInfo(account, &cstate.ContractInfo{Alive: &next})
		return RentOk, nil
	}

	if !balanceCoversDeposit {
		return e.evict(overlay, account, alive)
	}

	available := new(uint256.Int).Sub(balance, tombstoneDeposit)
	if idealRent.Cmp(available) > 0 {
		return e.evict(overlay, account, alive)
	}

	newBalance := new(uint256.Int).Sub(balance, idealRent)
	overlay.SetBalance(account, newBalance)
	next := *alive
	next.DeductBlock = asOfBlock
	overlay.SetInfo(account, &cstate.ContractInfo{Alive: &next})
	log.Debug("rent: debited", "account", account, "rent", idealRent, "blocksDue", blocksDue)
	return RentOk, nil
}

// idealRent computes min(rent_per_block*blocks_due, rent_allowance*blocks_due)
// per spec §4.6 — the third operand of the spec's min (balance minus
// tombstone deposit) is handled by transitionAt's separate affordability
// check rather than folded into this arithmetic, since uint256 has no
// native signed representation and the spec's "exceeds available balance"
// test is cleaner as a direct comparison.
func (e *Engine) idealRent(alive *cstate.AliveInfo, balance *uint256.Int, blocksDue uint64) *uint256.Int {
	rentDepositOffset := uint256.NewInt(e.schedule.RentDepositOffset)
	freeBytes := new(uint256.Int)
	if !rentDepositOffset.IsZero() {
		freeBytes.Div(balance, rentDepositOffset)
	}

	storageSize := uint256.NewInt(alive.StorageSize)
	effectiveSize := uint256.NewInt(0)
	if storageSize.Cmp(freeBytes) > 0 {
		effectiveSize = new(uint256.Int).Sub(storageSize, freeBytes)
	}

	rentPerBlock := new(uint256.Int).Mul(effectiveSize, uint256.NewInt(e.schedule.RentByteFee))
	rent := new(uint256.Int).Mul(rentPerBlock, uint256.NewInt(blocksDue))

	if alive.RentAllowance != nil {
		fromAllowance := new(uint256.Int).Mul(uint256.NewInt(alive.RentAllowance.Value), uint256.NewInt(blocksDue))
		if fromAllowance.Cmp(rent) < 0 {
			rent = fromAllowance
		}
	}
	return rent
}

// evict kills the contract's subtree, captures its root before deletion,
// and replaces its ContractInfo with a Tombstone binding that root to the
// contract's code hash (spec §4.6 step 2). A contract with no code_hash
// cannot be evicted: the returned error is authoritative there, RentOk is
// only a placeholder Outcome value for callers that switch on it and must
// not be read as "rent settled cleanly".
func (e *Engine) evict(overlay *cstate.Overlay, account collab.AccountID, alive *cstate.AliveInfo) (Outcome, error) {
	if (alive.CodeHash == collab.CodeHash{}) {
		return RentOk, ErrCannotEvictCodeless
	}
	root := e.child.Kill(alive.TrieID)
	hash := tombstoneHash(root, alive.CodeHash)
	overlay.SetInfo(account, &cstate.ContractInfo{Tombstone: &cstate.TombstoneInfo{Hash: hash}})
	e.tombstones.Add(account, hash)
	log.Debug("rent: evicted", "account", account, "tombstone", hash)
	return Evicted, nil
}

// tombstoneHash computes hash(root || code_hash), binding the frozen child
// trie's root to the contract's code hash (spec §3, §4.6).
func tombstoneHash(root [32]byte, codeHash collab.CodeHash) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write(root[:])
	h.Write(codeHash[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
