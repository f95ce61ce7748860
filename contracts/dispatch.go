package contracts

import (
	"fmt"

	"github.com/decentchain/contracts-core/address"
	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/frame"
	"github.com/decentchain/contracts-core/gastype"
	"github.com/decentchain/contracts-core/rent"
	"github.com/decentchain/contracts-core/vm"
	"github.com/holiman/uint256"
)

// UpdateSchedule installs next as the current cost schedule, provided its
// version strictly increases (spec §4.9's update_schedule, §4.2).
func (r *Runtime) UpdateSchedule(next gastype.Schedule) error {
	updated, err := gastype.Replace(r.schedule, next)
	if err != nil {
		return err
	}
	r.schedule = updated
	r.rent = rent.New(updated, r.child, r.blocks)
	r.log.append(Event{Kind: EventScheduleUpdated, Version: updated.Version})
	return nil
}

// PutCode instruments and validates code, then persists both its pristine
// and instrumented forms keyed by its hash (spec §4.9's put_code).
func (r *Runtime) PutCode(instrumenter collab.Instrumenter, code []byte) (collab.CodeHash, error) {
	instrumented, err := instrumenter.Instrument(code)
	if err != nil {
		return collab.CodeHash{}, fmt.Errorf("%w: %v", ErrCodeInvalid, err)
	}

	hash := codeHash(code)
	r.code.PutPristine(hash, code)
	r.code.PutInstrumented(hash, instrumented)
	r.log.append(Event{Kind: EventCodeStored, CodeHash: hash})
	return hash, nil
}

// Instantiate runs the root instantiate dispatchable (spec §4.9's
// instantiate, §4.5's instantiate protocol): pre-dispatch gas purchase,
// a fresh root frame deriving and deploying the new contract, commit on
// success, deferred-action replay, and post-dispatch refund.
func (r *Runtime) Instantiate(origin collab.AccountID, endowment *uint256.Int, gasLimit uint64, codeHash collab.CodeHash, input []byte) (collab.AccountID, []byte, error) {
	quote, err := r.broker.PreDispatch(origin, gasLimit)
	if err != nil {
		return collab.AccountID{}, nil, err
	}

	meter := gastype.New(gasLimit, quote.GasPrice)
	overlay := r.newOverlay()
	root := frame.NewRoot(r.frameConfig(), overlay, meter, origin)

	endowHi, endowLo := hiLo(endowment)
	newAccount, output, status, cerr := root.Instantiate(codeHash, endowHi, endowLo, input, gasLimit)

	if cerr == nil && status == vm.StatusSuccess {
		overlay.FlushToStore()
		r.emitTransfer(origin, newAccount, endowment)
		// EventInstantiated itself comes from replayDeferred: root.Instantiate
		// already queued it as an ActionInstantiated deferred action.
		r.replayDeferred(root.Deferred())
	}

	r.broker.PostDispatch(origin, quote, meter.GasLeft())

	if cerr != nil {
		return collab.AccountID{}, nil, cerr
	}
	if status != vm.StatusSuccess {
		return collab.AccountID{}, output, &RevertedError{Output: output}
	}
	return newAccount, output, nil
}

// Call runs the root call dispatchable (spec §4.9's call, §4.5's call
// protocol): same pre/post-dispatch envelope as Instantiate, around a root
// frame's Call instead of Instantiate.
func (r *Runtime) Call(origin, dest collab.AccountID, value *uint256.Int, gasLimit uint64, input []byte) ([]byte, error) {
	quote, err := r.broker.PreDispatch(origin, gasLimit)
	if err != nil {
		return nil, err
	}

	meter := gastype.New(gasLimit, quote.GasPrice)
	if meter.Charge(r.schedule.CallBase) == gastype.OutOfGas {
		r.broker.PostDispatch(origin, quote, meter.GasLeft())
		return nil, fmt.Errorf("contracts: gas limit %d does not cover call base cost %d", gasLimit, r.schedule.CallBase)
	}
	overlay := r.newOverlay()
	root := frame.NewRoot(r.frameConfig(), overlay, meter, origin)

	valueHi, valueLo := hiLo(value)
	output, status, cerr := root.Call(dest, valueHi, valueLo, input, gasLimit)

	if cerr == nil && status == vm.StatusSuccess {
		overlay.FlushToStore()
		r.emitTransfer(origin, dest, value)
		r.replayDeferred(root.Deferred())
	}

	r.broker.PostDispatch(origin, quote, meter.GasLeft())

	if cerr != nil {
		return nil, cerr
	}
	if status != vm.StatusSuccess {
		return output, &RevertedError{Output: output}
	}
	return output, nil
}

// ClaimSurcharge runs the rent engine's surcharge-claim transition against
// dest (spec §4.9's claim_surcharge, §4.6). Exactly one of signedCaller and
// auxSender should be non-nil; the rent engine rejects both-nil.
func (r *Runtime) ClaimSurcharge(dest collab.AccountID, signedCaller, auxSender *collab.AccountID) error {
	overlay := r.newOverlay()
	outcome, err := r.rent.ClaimSurcharge(overlay, dest, signedCaller, auxSender)
	if err != nil {
		return err
	}
	overlay.FlushToStore()
	if outcome == rent.Evicted {
		recipient := auxSender
		if recipient == nil {
			recipient = signedCaller
		}
		r.log.append(Event{Kind: EventTransfer, To: *recipient, Value: uint256.NewInt(r.schedule.SurchargeReward)})
	}
	return nil
}

func codeHash(code []byte) collab.CodeHash {
	return address.CodeDigest(code)
}
