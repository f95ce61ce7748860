package cstate

import (
	"errors"

	"github.com/decentchain/contracts-core/collab"
	"github.com/holiman/uint256"
)

var (
	ErrContractNotFound  = errors.New("cstate: contract not found")
	ErrContractIsTombstone = errors.New("cstate: contract is a tombstone")
	ErrTransferFailed    = errors.New("cstate: transfer failed")
	ErrValueTooLarge     = errors.New("cstate: value exceeds MaxValueSize")
)

type storageSlot struct {
	present bool // false means this layer records no opinion; fall through to parent
	deleted bool // true means the key was explicitly tombstoned in this layer
	value   []byte
}

// Overlay is the layered cache described in spec §4.3: committed store ←
// parent overlay ← current overlay. Each call frame gets its own Overlay via
// Begin; on success the child merges into its parent via Commit, on failure
// it is simply discarded — the teacher's Snapshot/RevertToSnapshot pair
// (core/state_transition.go) collapsed into "drop the child object".
type Overlay struct {
	parent *Overlay

	// Only set on the root overlay, which is backed by the committed store.
	currency collab.Currency
	child    collab.ChildStore
	infoRoot map[collab.AccountID]*ContractInfo

	balances map[collab.AccountID]*uint256.Int
	codeHash map[collab.AccountID]*collab.CodeHash
	info     map[collab.AccountID]*ContractInfo
	storage  map[collab.AccountID]map[[32]byte]storageSlot
}

// NewRoot builds the root overlay directly above the committed store.
func NewRoot(currency collab.Currency, child collab.ChildStore, info map[collab.AccountID]*ContractInfo) *Overlay {
	if info == nil {
		info = make(map[collab.AccountID]*ContractInfo)
	}
	return &Overlay{
		currency: currency,
		child:    child,
		infoRoot: info,
		balances: make(map[collab.AccountID]*uint256.Int),
		codeHash: make(map[collab.AccountID]*collab.CodeHash),
		info:     make(map[collab.AccountID]*ContractInfo),
		storage:  make(map[collab.AccountID]map[[32]byte]storageSlot),
	}
}

// Begin opens a new frame's overlay above o.
func (o *Overlay) Begin() *Overlay {
	return &Overlay{
		parent:   o,
		balances: make(map[collab.AccountID]*uint256.Int),
		codeHash: make(map[collab.AccountID]*collab.CodeHash),
		info:     make(map[collab.AccountID]*ContractInfo),
		storage:  make(map[collab.AccountID]map[[32]byte]storageSlot),
	}
}

// Commit merges a child overlay's patches into o, its parent. Called only
// when the child's frame returned Success (spec §4.5 step 5).
func (o *Overlay) Commit(child *Overlay) {
	for a, v := range child.balances {
		o.balances[a] = v
	}
	for a, v := range child.codeHash {
		o.codeHash[a] = v
	}
	for a, v := range child.info {
		o.info[a] = v
	}
	for a, slots := range child.storage {
		dst, ok := o.storage[a]
		if !ok {
			dst = make(map[[32]byte]storageSlot)
			o.storage[a] = dst
		}
		for k, v := range slots {
			dst[k] = v
		}
	}
}

// FlushToStore writes the root overlay's accumulated patches into the
// backing collaborators: balances into Currency, ContractInfo into the
// committed info map, and storage writes into ChildStore. It is the single
// point where the committed store is mutated (spec §4.3: "the committed
// store is mutated only once, at the top level, after the root frame
// succeeds") — callers (C9) invoke it exactly once, on the root overlay,
// after a top-level call or instantiate has returned Success.
func (o *Overlay) FlushToStore() {
	for a, v := range o.balances {
		o.currency.SetBalance(a, v)
	}
	for a, ci := range o.info {
		if ci == nil {
			delete(o.infoRoot, a)
			continue
		}
		o.infoRoot[a] = ci
	}
	for a, slots := range o.storage {
		ci, ok := o.infoRoot[a]
		if !ok || !ci.IsAlive() {
			continue
		}
		for key, slot := range slots {
			if slot.deleted {
				o.child.Delete(ci.Alive.TrieID, key)
			} else {
				o.child.Set(ci.Alive.TrieID, key, slot.value)
			}
		}
	}
}

// --- balance ---

// GetBalance returns the account's balance as seen through this overlay.
func (o *Overlay) GetBalance(a collab.AccountID) *uint256.Int {
	for layer := o; layer != nil; layer = layer.parent {
		if v, ok := layer.balances[a]; ok {
			return v.Clone()
		}
		if layer.parent == nil {
			return layer.currency.Balance(a)
		}
	}
	return uint256.NewInt(0)
}

// SetBalance records a new balance patch in this layer only.
func (o *Overlay) SetBalance(a collab.AccountID, v *uint256.Int) {
	o.balances[a] = v.Clone()
}

// Transfer atomically debits from and credits to within this overlay,
// enforcing the existential deposit (spec §4.3). reason distinguishes an
// ordinary transfer from an instantiation endowment.
func (o *Overlay) Transfer(from, to collab.AccountID, value *uint256.Int, reason collab.TransferReason) error {
	if value.IsZero() {
		return nil
	}
	existDep := o.existentialDeposit()
	fromBal := o.GetBalance(from)
	if fromBal.Lt(value) {
		return ErrTransferFailed
	}
	remaining := new(uint256.Int).Sub(fromBal, value)
	if !remaining.IsZero() && remaining.Lt(existDep) {
		return ErrTransferFailed
	}
	toBal := new(uint256.Int).Add(o.GetBalance(to), value)
	if toBal.Lt(existDep) {
		return ErrTransferFailed
	}
	o.SetBalance(from, remaining)
	o.SetBalance(to, toBal)
	_ = reason // recorded by callers wanting to distinguish endowment events
	return nil
}

func (o *Overlay) existentialDeposit() *uint256.Int {
	for layer := o; layer != nil; layer = layer.parent {
		if layer.parent == nil {
			return layer.currency.ExistentialDeposit()
		}
	}
	return uint256.NewInt(0)
}

// --- code hash ---

func (o *Overlay) GetCodeHash(a collab.AccountID) (collab.CodeHash, bool) {
	for layer := o; layer != nil; layer = layer.parent {
		if v, ok := layer.codeHash[a]; ok {
			if v == nil {
				return collab.CodeHash{}, false
			}
			return *v, true
		}
		if layer.parent == nil {
			if ci, ok := layer.infoRoot[a]; ok && ci.IsAlive() {
				return ci.Alive.CodeHash, true
			}
		}
	}
	return collab.CodeHash{}, false
}

func (o *Overlay) SetCodeHash(a collab.AccountID, h collab.CodeHash) {
	v := h
	o.codeHash[a] = &v
}

// --- contract info ---

func (o *Overlay) GetInfo(a collab.AccountID) (*ContractInfo, bool) {
	for layer := o; layer != nil; layer = layer.parent {
		if v, ok := layer.info[a]; ok {
			return v, v != nil
		}
		if layer.parent == nil {
			v, ok := layer.infoRoot[a]
			return v, ok
		}
	}
	return nil, false
}

func (o *Overlay) SetInfo(a collab.AccountID, ci *ContractInfo) {
	o.info[a] = ci
}

// --- storage ---

// GetStorage returns a key's value as seen through this overlay; absent
// means the key is deleted, or was never written (spec §3's Overlay Entry:
// "None = tombstoned key").
func (o *Overlay) GetStorage(a collab.AccountID, key [32]byte) ([]byte, bool) {
	for layer := o; layer != nil; layer = layer.parent {
		if slots, ok := layer.storage[a]; ok {
			if slot, ok := slots[key]; ok {
				if slot.deleted {
					return nil, false
				}
				return slot.value, true
			}
		}
		if layer.parent == nil {
			ci, ok := layer.infoRoot[a]
			if !ok || !ci.IsAlive() {
				return nil, false
			}
			return layer.child.Get(ci.Alive.TrieID, key)
		}
	}
	return nil, false
}

// SetStorage writes (or, if value is nil, deletes) key in this layer, and
// returns the octet delta (new length minus old length) so the caller can
// maintain storage_size (spec §4.3's invariant).
func (o *Overlay) SetStorage(a collab.AccountID, key [32]byte, value []byte, maxValueSize uint32) (delta int64, err error) {
	if value != nil && uint32(len(value)) > maxValueSize {
		return 0, ErrValueTooLarge
	}
	oldValue, hadOld := o.GetStorage(a, key)
	slots, ok := o.storage[a]
	if !ok {
		slots = make(map[[32]byte]storageSlot)
		o.storage[a] = slots
	}
	if value == nil {
		slots[key] = storageSlot{present: true, deleted: true}
	} else {
		slots[key] = storageSlot{present: true, value: value}
	}
	var oldLen, newLen int64
	if hadOld {
		oldLen = int64(len(oldValue))
	}
	if value != nil {
		newLen = int64(len(value))
	}
	return newLen - oldLen, nil
}
