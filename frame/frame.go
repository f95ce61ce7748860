// Package frame is the Execution Context (C5): the per-call frame, its
// depth tracking, transfer semantics, and deferred-action log. It wires C4
// (the Wasm executor), C3 (the account overlay) and C7 (address/trie-id
// derivation) together the way core/state_transition.go's TransitionDb
// wires EVM interpretation, IntraBlockState and gas accounting together —
// precheck, buy/transfer resources, execute, collect result, merge-or-drop.
package frame

import (
	"github.com/decentchain/contracts-core/address"
	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/cstate"
	"github.com/decentchain/contracts-core/gastype"
	"github.com/decentchain/contracts-core/vm"
	"github.com/davecgh/go-spew/spew"
	log "github.com/erigontech/erigon-lib/log/v3"
	"github.com/holiman/uint256"
)

// Config bundles everything a tree of frames needs beyond its own overlay
// and meter: the immutable schedule, the Wasm executor, and the external
// collaborators named in spec §1.
type Config struct {
	Schedule   gastype.Schedule
	Executor   *vm.Executor
	Randomness collab.Randomness
	Blocks     collab.BlockSource
	Counter    *address.AccountCounter
}

// Frame is one call or instantiate activation (spec §4.5): caller, self,
// depth, its layer of the account overlay, and the deferred-action log it
// has accumulated so far. Frame implements vm.HostServices directly, so C4
// can recurse into C5 without either package importing the other's
// concrete types (vm depends on neither frame nor cstate beyond the
// narrow HostServices/collab surfaces).
type Frame struct {
	cfg     *Config
	overlay *cstate.Overlay
	meter   *gastype.Meter

	caller collab.AccountID
	self   collab.AccountID
	depth  uint32

	deferred []DeferredAction
}

// NewRoot builds the outermost frame for a dispatchable (C9): self==origin,
// depth 0, so the first nested call or instantiate lands at depth 1 — the
// same "root is frame zero" numbering spec §8's S2 scenario assumes
// ("exceeding MaxDepth=3 ... fails at frame 4").
func NewRoot(cfg *Config, overlay *cstate.Overlay, meter *gastype.Meter, origin collab.AccountID) *Frame {
	return &Frame{cfg: cfg, overlay: overlay, meter: meter, caller: origin, self: origin, depth: 0}
}

// Deferred returns the frame's accumulated deferred-action log. Callers
// only ever want this on the root frame after a successful top-level call
// (spec §4.5's "replayed in that order").
func (f *Frame) Deferred() []DeferredAction { return f.deferred }

// Meter returns the frame's gas meter.
func (f *Frame) Meter() *gastype.Meter { return f.meter }

// Self returns the account this frame is executing as.
func (f *Frame) Self() collab.AccountID { return f.self }

// spawn opens a child frame bound to a fresh overlay layer and a gas
// sub-meter capped at min(gasLimit, f.meter.GasLeft()) (spec §4.1's
// nested(sub_limit)). settleGas must run exactly once, regardless of the
// child's outcome: gas a failed sub-call spent is permanently lost to the
// parent (spec §4.5's failure semantics), so it is always charged back.
func (f *Frame) spawn(self collab.AccountID, gasLimit uint64) (child *Frame, settleGas func()) {
	childMeter, settle := f.meter.Nested(gasLimit)
	child = &Frame{
		cfg:     f.cfg,
		overlay: f.overlay.Begin(),
		meter:   childMeter,
		caller:  f.self,
		self:    self,
		depth:   f.depth + 1,
	}
	return child, settle
}

// commit merges a successful child's overlay and deferred log into f (spec
// §4.3 "merged into its parent", §4.5 step 5).
func (f *Frame) commit(child *Frame) {
	f.overlay.Commit(child.overlay)
	f.deferred = append(f.deferred, child.deferred...)
}

// Call implements the call protocol (spec §4.5) and vm.HostServices.Call in
// one signature: C9 converts its top-level uint256 value into the hi/lo
// pair the same way a nested contract call does, so there is exactly one
// code path for "transfer value, maybe invoke code, merge-or-drop" whether
// the caller is the public API or a running contract.
func (f *Frame) Call(dest collab.AccountID, valueHi, valueLo uint64, input []byte, gasLimit uint64) ([]byte, vm.Status, error) {
	if f.depth+1 > f.cfg.Schedule.MaxDepth {
		return nil, vm.StatusReverted, ErrMaxCallDepthReached
	}

	child, settleGas := f.spawn(dest, gasLimit)
	defer settleGas()

	value := hiLoToUint256(valueHi, valueLo)
	if err := child.overlay.Transfer(f.self, dest, value, collab.ReasonTransfer); err != nil {
		return nil, vm.StatusReverted, err
	}

	codeHash, hasCode := child.overlay.GetCodeHash(dest)
	if !hasCode {
		// Plain transfer to a non-contract account (spec §4.5 step 4).
		f.commit(child)
		return nil, vm.StatusSuccess, nil
	}

	hc := &vm.HostContext{
		Meter:    child.meter,
		Schedule: f.cfg.Schedule,
		Self:     dest,
		Caller:   f.self,
		Services: child,
	}
	result, err := f.cfg.Executor.Invoke(hc, codeHash, vm.EntryCall, input)
	if err != nil {
		// A trap always consumes the frame's remaining gas (spec §4.4).
		child.meter.Charge(child.meter.GasLeft())
		if log.Root().IsTraceEnabled() {
			log.Trace("frame: call trapped", "self", dest, "caller", f.self, "err", err, "overlay", spew.Sdump(child.overlay))
		}
		return nil, vm.StatusReverted, err
	}
	if result.Status == vm.StatusSuccess {
		f.commit(child)
	}
	return result.Output, result.Status, nil
}

// Instantiate implements the instantiate protocol (spec §4.5) and
// vm.HostServices.Instantiate.
func (f *Frame) Instantiate(codeHash collab.CodeHash, endowHi, endowLo uint64, input []byte, gasLimit uint64) (collab.AccountID, []byte, vm.Status, error) {
	if f.depth+1 > f.cfg.Schedule.MaxDepth {
		return collab.AccountID{}, nil, vm.StatusReverted, ErrMaxCallDepthReached
	}

	newAccount := address.DeriveAccount(codeHash, input, f.self)
	child, settleGas := f.spawn(newAccount, gasLimit)
	defer settleGas()

	if _, exists := child.overlay.GetInfo(newAccount); exists {
		return collab.AccountID{}, nil, vm.StatusReverted, ErrDuplicateContract
	}

	endowment := hiLoToUint256(endowHi, endowLo)
	if err := child.overlay.Transfer(f.self, newAccount, endowment, collab.ReasonEndowment); err != nil {
		return collab.AccountID{}, nil, vm.StatusReverted, err
	}

	trieID := address.DeriveTrieID(newAccount, f.cfg.Counter.Next())
	child.overlay.SetCodeHash(newAccount, codeHash)
	child.overlay.SetInfo(newAccount, cstate.NewAlive(
		trieID, codeHash, f.cfg.Schedule.StorageSizeOffset, f.cfg.Blocks.CurrentBlock(), cstate.Unlimited(),
	))

	hc := &vm.HostContext{
		Meter:    child.meter,
		Schedule: f.cfg.Schedule,
		Self:     newAccount,
		Caller:   f.self,
		Services: child,
	}
	result, err := f.cfg.Executor.Invoke(hc, codeHash, vm.EntryDeploy, input)
	if err != nil {
		child.meter.Charge(child.meter.GasLeft())
		log.Trace("frame: instantiate trapped", "self", newAccount, "caller", f.self, "err", err)
		return collab.AccountID{}, nil, vm.StatusReverted, err
	}
	if result.Status != vm.StatusSuccess {
		// Nothing persists from a failed deploy (spec §4.5 instantiate step 6).
		return collab.AccountID{}, result.Output, result.Status, nil
	}

	child.deferred = append(child.deferred, DeferredAction{
		Kind:                   ActionInstantiated,
		InstantiatedDeployer:   f.self,
		InstantiatedNewAccount: newAccount,
	})
	f.commit(child)
	return newAccount, result.Output, vm.StatusSuccess, nil
}

func hiLoToUint256(hi, lo uint64) *uint256.Int {
	v := new(uint256.Int).SetUint64(hi)
	v.Lsh(v, 64)
	return v.Or(v, new(uint256.Int).SetUint64(lo))
}

func uint256ToHiLo(v *uint256.Int) (hi, lo uint64) {
	lo = v.Uint64()
	hi = new(uint256.Int).Rsh(v, 64).Uint64()
	return hi, lo
}
