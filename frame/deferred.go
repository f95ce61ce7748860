package frame

import "github.com/decentchain/contracts-core/collab"

// ActionKind distinguishes the deferred-action shapes spec §3 names, plus
// ActionInstantiated (SPEC_FULL.md's supplemented Instantiated(deployer,
// contract) effect), kept distinct from ActionEvent so replay can tell a
// successful instantiate apart from a contract's own deposited event.
type ActionKind uint8

const (
	ActionEvent ActionKind = iota
	ActionDispatch
	ActionRestore
	ActionInstantiated
)

// DeferredAction is one intent queued during a frame's execution. Intents
// queued by a frame that ultimately fails are discarded along with that
// frame's overlay; intents queued by a frame that commits are carried up to
// its parent and, at top-level success, replayed in append order (spec
// §4.5, §9's "Deferred actions" note).
type DeferredAction struct {
	Kind ActionKind

	// ActionEvent
	Topics [][32]byte
	Data   []byte

	// ActionDispatch
	DispatchOrigin collab.AccountID
	DispatchCall   []byte

	// ActionRestore
	RestoreDonor         collab.AccountID
	RestoreDest          collab.AccountID
	RestoreCodeHash      collab.CodeHash
	RestoreRentAllowance uint64
	RestoreDelta         [][32]byte

	// ActionInstantiated
	InstantiatedDeployer   collab.AccountID
	InstantiatedNewAccount collab.AccountID
}
