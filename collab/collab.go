// Package collab declares the narrow interfaces contracts-core uses to talk
// to the components spec.md §1 treats as external collaborators: the
// currency module, the generic trie-backed K/V store, the Wasm
// instrumentation/validation backend, the random beacon, the block/header
// source, and the extrinsic dispatcher. contracts-core never assumes a
// concrete implementation of any of these; it only depends on these
// interfaces, so tests can instantiate multiple isolated worlds (spec §9).
package collab

import "github.com/holiman/uint256"

// AccountID is an opaque identity of a contract or externally owned account
// (spec §3).
type AccountID [20]byte

// CodeHash is the 32-byte digest of untrusted Wasm source (spec §3).
type CodeHash [32]byte

// TrieID names a contract's private K/V subtree (spec §3).
type TrieID []byte

// TransferReason distinguishes an ordinary value transfer from an
// instantiation endowment, per spec §4.3.
type TransferReason uint8

const (
	ReasonTransfer TransferReason = iota
	ReasonEndowment
)

// Currency withdraws, deposits, transfers, and burns balance on behalf of
// the (out-of-scope) currency module (spec §1, §4.3, §4.6, §4.8).
type Currency interface {
	Balance(a AccountID) *uint256.Int
	// SetBalance installs a's final balance directly, bypassing transfer
	// checks. Used exactly once per account by cstate.Overlay.FlushToStore,
	// after the overlay's own layered Transfer calls have already enforced
	// the existential deposit during execution.
	SetBalance(a AccountID, v *uint256.Int)
	Withdraw(a AccountID, amount *uint256.Int) error
	Deposit(a AccountID, amount *uint256.Int)
	// Transfer moves amount from 'from' to 'to', rejecting a transfer that
	// would leave either side below the existential deposit (spec §4.3).
	Transfer(from, to AccountID, amount *uint256.Int, reason TransferReason) error
	// Burn permanently removes amount from circulation (rent surcharge
	// accounting, spec §4.3's "minus fees burned" invariant).
	Burn(a AccountID, amount *uint256.Int)
	ExistentialDeposit() *uint256.Int
}

// CodeStore persists the pristine and instrumented forms of uploaded Wasm
// code, keyed by CodeHash (spec §6's PristineCode/CodeStorage).
type CodeStore interface {
	PutPristine(h CodeHash, code []byte)
	GetPristine(h CodeHash) ([]byte, bool)
	PutInstrumented(h CodeHash, module []byte)
	GetInstrumented(h CodeHash) ([]byte, bool)
}

// ChildStore is the narrow slice of the generic trie-backed K/V store that
// contracts-core needs: per-contract child storage access, and eviction
// support (spec §6 "child storage", §4.6 step 2).
type ChildStore interface {
	Get(trie TrieID, key [32]byte) ([]byte, bool)
	Set(trie TrieID, key [32]byte, value []byte)
	Delete(trie TrieID, key [32]byte)
	// Root returns the current root hash of the named subtree.
	Root(trie TrieID) [32]byte
	// Kill deletes every key in the subtree and returns the root it had
	// immediately before deletion (spec §4.6 step 2).
	Kill(trie TrieID) [32]byte
	// RootExcluding returns the root the subtree would have if every key in
	// exclude were absent, without mutating the subtree. Restoration uses
	// this to verify a donor's projected tombstone pre-image (spec §4.6)
	// before committing to deleting those keys, so a mismatch leaves the
	// donor's storage untouched (spec §8.5).
	RootExcluding(trie TrieID, exclude [][32]byte) [32]byte
}

// Instrumenter is the Wasm instrumentation/validation backend (spec §1,
// §4.9's put_code: "instruments and validates the Wasm").
type Instrumenter interface {
	Instrument(pristine []byte) (instrumented []byte, err error)
}

// Randomness is the external randomness collaborator C4's `random` host
// function calls through (spec §4.4).
type Randomness interface {
	Random(subject []byte) [32]byte
}

// BlockSource is the block/header source collaborator (spec §1); all
// block-relative logic (rent, surcharge handicap, gas broker weight
// accounting) reads the current block through it.
type BlockSource interface {
	CurrentBlock() uint64
}

// WeightAccounting is the block-weight ledger the pre-dispatch gas broker
// (C8) reads and writes: the already-used portion of the current block's
// weight ceiling, and the ceiling itself (spec §4.8 step 1, step 4's
// "register the spent weight with the block-weight accounting
// collaborator"). Like the extrinsic dispatcher, the block containing this
// ledger is out of scope (spec §1); this is the narrow slice C8 needs of it.
type WeightAccounting interface {
	Used() uint64
	Ceiling() uint64
	Register(weight uint64)
}

// Dispatcher replays the runtime-dispatch variant of a Deferred Action
// under a signed origin (spec §3, §4.5). The extrinsic decoder/dispatcher
// itself is out of scope (spec §1); this is the narrow callback contracts-core
// invokes into it.
type Dispatcher interface {
	Dispatch(origin AccountID, call []byte) (success bool, err error)
}
