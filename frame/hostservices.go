package frame

import (
	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/cstate"
	log "github.com/erigontech/erigon-lib/log/v3"
)

// The remaining vm.HostServices methods: storage access, balance/transfer,
// terminate, event/restore deferral, and the block/random/gas-price
// queries. Call and Instantiate (the recursive entries) live in frame.go.

func (f *Frame) GetStorage(key [32]byte) ([]byte, bool) {
	return f.overlay.GetStorage(f.self, key)
}

// SetStorage writes through the overlay and folds the resulting octet
// delta into the contract's storage_size (spec §4.3's recomputation
// invariant), touching last_write (spec §3).
func (f *Frame) SetStorage(key [32]byte, value []byte) (int64, error) {
	delta, err := f.overlay.SetStorage(f.self, key, value, f.cfg.Schedule.MaxValueSize)
	if err != nil {
		return 0, err
	}
	f.touchStorage(delta)
	return delta, nil
}

func (f *Frame) touchStorage(delta int64) {
	ci, ok := f.overlay.GetInfo(f.self)
	if !ok || !ci.IsAlive() {
		return
	}
	next := *ci.Alive
	switch {
	case delta < 0 && uint64(-delta) > next.StorageSize:
		next.StorageSize = 0
	default:
		next.StorageSize = uint64(int64(next.StorageSize) + delta)
	}
	block := f.cfg.Blocks.CurrentBlock()
	next.LastWrite = &block
	f.overlay.SetInfo(f.self, &cstate.ContractInfo{Alive: &next})
}

func (f *Frame) Balance(a collab.AccountID) (hi, lo uint64) {
	return uint256ToHiLo(f.overlay.GetBalance(a))
}

func (f *Frame) Transfer(to collab.AccountID, valueHi, valueLo uint64) error {
	return f.overlay.Transfer(f.self, to, hiLoToUint256(valueHi, valueLo), collab.ReasonTransfer)
}

// Terminate sweeps the contract's free balance to beneficiary and removes
// its ContractInfo (self-destruct, spec §4.4's host function list).
func (f *Frame) Terminate(beneficiary collab.AccountID) error {
	bal := f.overlay.GetBalance(f.self)
	if !bal.IsZero() {
		if err := f.overlay.Transfer(f.self, beneficiary, bal, collab.ReasonTransfer); err != nil {
			return err
		}
	}
	f.overlay.SetInfo(f.self, nil)
	return nil
}

func (f *Frame) DepositEvent(topics [][32]byte, data []byte) error {
	f.deferred = append(f.deferred, DeferredAction{Kind: ActionEvent, Topics: topics, Data: data})
	return nil
}

// RestoreTo queues a restoration intent (spec §3's Deferred Action) rather
// than performing it inline: the rent engine that actually validates and
// applies restore_to is owned by C6/C9, not C5, and restoration is
// explicitly "best-effort" at replay time (spec §4.5).
func (f *Frame) RestoreTo(dest collab.AccountID, codeHash collab.CodeHash, rentAllowance uint64, delta [][32]byte) error {
	f.deferred = append(f.deferred, DeferredAction{
		Kind:                 ActionRestore,
		RestoreDonor:         f.self,
		RestoreDest:          dest,
		RestoreCodeHash:      codeHash,
		RestoreRentAllowance: rentAllowance,
		RestoreDelta:         delta,
	})
	return nil
}

// SetRentAllowance supplements spec §3's ContractInfo.rent_allowance with
// the update path the original exposes (SPEC_FULL's supplemented features).
func (f *Frame) SetRentAllowance(value uint64, unlimited bool) error {
	ci, ok := f.overlay.GetInfo(f.self)
	if !ok || !ci.IsAlive() {
		return cstate.ErrContractNotFound
	}
	next := *ci.Alive
	if unlimited {
		next.RentAllowance = cstate.Unlimited()
	} else {
		next.RentAllowance = cstate.Bounded(value)
	}
	f.overlay.SetInfo(f.self, &cstate.ContractInfo{Alive: &next})
	return nil
}

func (f *Frame) Random(subject []byte) [32]byte {
	return f.cfg.Randomness.Random(subject)
}

func (f *Frame) BlockNumber() uint64 {
	return f.cfg.Blocks.CurrentBlock()
}

func (f *Frame) GasPrice() (hi, lo uint64) {
	return uint256ToHiLo(f.meter.Price())
}

func (f *Frame) Println(msg string) {
	log.Trace("frame: contract println", "self", f.self, "msg", msg)
}
