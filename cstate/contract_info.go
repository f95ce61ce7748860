package cstate

import "github.com/decentchain/contracts-core/collab"

// ContractInfo is the sum type over Alive and Tombstone described in spec
// §3: a tagged variant with two shapes, no inheritance (spec §9's explicit
// design note). Exactly one of Alive/Tombstone is non-nil at any time.
type ContractInfo struct {
	Alive     *AliveInfo
	Tombstone *TombstoneInfo
}

// AliveInfo is the live-contract variant (spec §3).
type AliveInfo struct {
	TrieID        collab.TrieID
	StorageSize   uint64
	CodeHash      collab.CodeHash
	RentAllowance *uint64WithSign
	DeductBlock   uint64
	LastWrite     *uint64
}

// TombstoneInfo is the evicted-contract variant. It binds the root of the
// frozen child trie at eviction time with the contract's code hash (spec
// §3); it owns no child storage.
type TombstoneInfo struct {
	Hash [32]byte
}

// uint64WithSign represents RentAllowance, which in the original source can
// be "unlimited" (no cap) as well as any non-negative bound; we model
// "unlimited" as a nil *uint64WithSign at the call site rather than adding a
// sentinel magic value, and a bound as a plain wrapped uint64.
type uint64WithSign struct {
	Value uint64
}

// Unlimited reports an unbounded rent allowance.
func Unlimited() *uint64WithSign { return nil }

// Bounded wraps a finite rent allowance.
func Bounded(v uint64) *uint64WithSign { return &uint64WithSign{Value: v} }

// IsAlive reports whether ci names a live contract.
func (ci *ContractInfo) IsAlive() bool { return ci != nil && ci.Alive != nil }

// IsTombstone reports whether ci names an evicted contract.
func (ci *ContractInfo) IsTombstone() bool { return ci != nil && ci.Tombstone != nil }

// NewAlive builds the ContractInfo installed by a successful instantiate
// (spec §4.5 step 5): storage_size starts at the schedule's offset,
// deduct_block at the current block, last_write unset.
func NewAlive(trieID collab.TrieID, codeHash collab.CodeHash, storageSizeOffset, currentBlock uint64, rentAllowance *uint64WithSign) *ContractInfo {
	return &ContractInfo{Alive: &AliveInfo{
		TrieID:        trieID,
		StorageSize:   storageSizeOffset,
		CodeHash:      codeHash,
		RentAllowance: rentAllowance,
		DeductBlock:   currentBlock,
		LastWrite:     nil,
	}}
}
