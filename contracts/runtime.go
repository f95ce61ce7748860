// Package contracts is the Dispatchables / Public API (C9): it wires the
// gas broker (C8), execution context (C5), account overlay (C3) and rent
// engine (C6) together into the five entry points spec §4.9 names, the way
// core/state_transition.go's TransitionDb is the single place buyGas,
// the EVM interpreter, IntraBlockState and refundGas all get called from in
// sequence.
package contracts

import (
	"github.com/decentchain/contracts-core/address"
	"github.com/decentchain/contracts-core/broker"
	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/cstate"
	"github.com/decentchain/contracts-core/frame"
	"github.com/decentchain/contracts-core/gastype"
	"github.com/decentchain/contracts-core/rent"
	"github.com/decentchain/contracts-core/vm"
	log "github.com/erigontech/erigon-lib/log/v3"
	"github.com/holiman/uint256"
)

// Runtime is the committed state of one chain instance plus every
// collaborator contracts-core needs to dispatch against it (spec §6's
// persisted-state list, §1's collaborator list). Its zero value is not
// useful; build one with New.
type Runtime struct {
	schedule gastype.Schedule

	code       collab.CodeStore
	child      collab.ChildStore
	currency   collab.Currency
	randomness collab.Randomness
	blocks     collab.BlockSource
	dispatcher collab.Dispatcher

	counter  *address.AccountCounter
	executor *vm.Executor
	rent     *rent.Engine
	broker   *broker.Broker

	info map[collab.AccountID]*cstate.ContractInfo
	log  Log
}

// New wires a Runtime. hotCacheBytes sizes the executor's instrumented-module
// cache (spec §9's "hot cache of recently used instrumented modules");
// feePerWeight and feeSink parameterize the gas broker (spec §4.8); weights
// is the block-weight ledger C8 reads and writes.
func New(
	schedule gastype.Schedule,
	code collab.CodeStore,
	child collab.ChildStore,
	currency collab.Currency,
	randomness collab.Randomness,
	blocks collab.BlockSource,
	dispatcher collab.Dispatcher,
	weights collab.WeightAccounting,
	feePerWeight *uint256.Int,
	feeSink collab.AccountID,
	hotCacheBytes int,
) *Runtime {
	return &Runtime{
		schedule:   schedule,
		code:       code,
		child:      child,
		currency:   currency,
		randomness: randomness,
		blocks:     blocks,
		dispatcher: dispatcher,
		counter:    &address.AccountCounter{},
		executor:   vm.NewExecutor(code, hotCacheBytes),
		rent:       rent.New(schedule, child, blocks),
		broker:     broker.New(currency, weights, feePerWeight, feeSink),
		info:       make(map[collab.AccountID]*cstate.ContractInfo),
	}
}

// Schedule returns the currently installed cost schedule.
func (r *Runtime) Schedule() gastype.Schedule { return r.schedule }

// Events returns every event emitted by dispatchables run so far.
func (r *Runtime) Events() []Event { return r.log.Events() }

// ContractInfo exposes a committed account's ContractInfo, for callers
// inspecting chain state between dispatchables (tests, block explorers).
func (r *Runtime) ContractInfo(a collab.AccountID) (*cstate.ContractInfo, bool) {
	ci, ok := r.info[a]
	return ci, ok
}

// FinalizeBlock clears the gas broker's transient GasPrice/GasUsageReport
// storage, as spec §6 requires at every block boundary.
func (r *Runtime) FinalizeBlock() {
	r.broker.Transient().Clear()
}

func (r *Runtime) frameConfig() *frame.Config {
	return &frame.Config{
		Schedule:   r.schedule,
		Executor:   r.executor,
		Randomness: r.randomness,
		Blocks:     r.blocks,
		Counter:    r.counter,
	}
}

func (r *Runtime) newOverlay() *cstate.Overlay {
	return cstate.NewRoot(r.currency, r.child, r.info)
}

func hiLo(v *uint256.Int) (hi, lo uint64) {
	lo = v.Uint64()
	hi = new(uint256.Int).Rsh(v, 64).Uint64()
	return hi, lo
}

// replayDeferred runs spec §4.5's "replayed in that order" step against a
// root frame's accumulated deferred-action log, after the overlay that
// produced it has already been flushed to the committed store.
func (r *Runtime) replayDeferred(actions []frame.DeferredAction) {
	for _, a := range actions {
		switch a.Kind {
		case frame.ActionEvent:
			r.log.append(Event{Kind: EventContract, Data: a.Data})

		case frame.ActionInstantiated:
			r.log.append(Event{Kind: EventInstantiated, Deployer: a.InstantiatedDeployer, NewAccount: a.InstantiatedNewAccount})

		case frame.ActionDispatch:
			success, err := r.dispatcher.Dispatch(a.DispatchOrigin, a.DispatchCall)
			if err != nil {
				log.Debug("contracts: runtime-dispatch failed", "origin", a.DispatchOrigin, "err", err)
			}
			r.log.append(Event{Kind: EventDispatched, Origin: a.DispatchOrigin, Success: success})

		case frame.ActionRestore:
			overlay := r.newOverlay()
			unlimited := a.RestoreRentAllowance == 0
			if err := r.rent.RestoreTo(overlay, a.RestoreDonor, a.RestoreDest, a.RestoreCodeHash, a.RestoreRentAllowance, unlimited, a.RestoreDelta); err != nil {
				// Best-effort per spec §4.5: a failed restoration never
				// invalidates the call that queued it.
				log.Debug("contracts: restore_to failed", "donor", a.RestoreDonor, "dest", a.RestoreDest, "err", err)
				continue
			}
			overlay.FlushToStore()
		}
	}
}

func (r *Runtime) emitTransfer(from, to collab.AccountID, value *uint256.Int) {
	if value.IsZero() {
		return
	}
	r.log.append(Event{Kind: EventTransfer, From: from, To: to, Value: value.Clone()})
}
