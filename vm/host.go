package vm

import (
	"encoding/binary"

	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/gastype"
)

// HostServices is what a host function call bridges out to: the account
// overlay, inner call/instantiate dispatch (owned by C5), and the
// collaborators named in spec §1/§4.4 (randomness). Balance is part of this
// interface but no host function in table() calls it.
//
// C5 implements this once per frame and passes it into Invoke via
// HostContext; vm itself never depends on C5's concrete frame type,
// avoiding an import cycle (frame depends on vm, not the reverse).
type HostServices interface {
	GetStorage(key [32]byte) ([]byte, bool)
	SetStorage(key [32]byte, value []byte) (deltaOctets int64, err error)

	Balance(a collab.AccountID) (hi, lo uint64)
	Transfer(to collab.AccountID, valueHi, valueLo uint64) error

	// Call and Instantiate recurse into C5's frame machinery. Returning
	// (nil-able output, status, err) lets the host function translate the
	// sub-call's outcome into the trap-vs-status-code distinction spec §4.5
	// requires ("the parent may observe success, revert, or trap").
	Call(dest collab.AccountID, valueHi, valueLo uint64, input []byte, gasLimit uint64) (output []byte, status Status, err error)
	Instantiate(codeHash collab.CodeHash, endowHi, endowLo uint64, input []byte, gasLimit uint64) (newAccount collab.AccountID, output []byte, status Status, err error)

	Terminate(beneficiary collab.AccountID) error
	DepositEvent(topics [][32]byte, data []byte) error
	RestoreTo(dest collab.AccountID, codeHash collab.CodeHash, rentAllowance uint64, delta [][32]byte) error

	// SetRentAllowance lets a contract lower (or uncap) its own rent
	// allowance from within its deploy/call entry point, supplementing
	// spec §3's ContractInfo.rent_allowance field with the update path the
	// original exposes as a dedicated dispatchable-adjacent call.
	SetRentAllowance(value uint64, unlimited bool) error

	Random(subject []byte) [32]byte
	BlockNumber() uint64
	GasPrice() (hi, lo uint64)

	Println(msg string)
}

// hostBridge adapts HostContext+sandbox memory into the charge/validate/act
// sequence spec §4.4 mandates for every host function: "(a) charge the
// schedule cost ... before performing work, (b) validate every argument ...
// against the sandbox's memory bounds and MaxValueSize, (c) convert host
// errors into deterministic trap codes".
// sandboxMemory is the slice of *sandbox a host function needs: reading and
// writing the guest's linear memory. Kept as an interface (rather than
// hostBridge depending on *sandbox directly) so the charge/validate/act
// logic in this file can be exercised without a live wagon VM.
type sandboxMemory interface {
	readMemory(ptr, length uint32) ([]byte, error)
	writeMemory(ptr uint32, data []byte) error
}

type hostBridge struct {
	hc *HostContext
	sb sandboxMemory
}

func newHostBridge(hc *HostContext, sb sandboxMemory) *hostBridge {
	return &hostBridge{hc: hc, sb: sb}
}

// charge debits the meter for a host function's base/variable cost before
// any side effect; OutOfGas here always surfaces as a trap, never a revert,
// per spec §4.4/§4.1.
func (b *hostBridge) charge(amount uint64) error {
	if b.hc.Meter.Charge(amount) == gastype.OutOfGas {
		return errHostOutOfGas
	}
	return nil
}

func (b *hostBridge) readMem(ptr, length uint32) ([]byte, error) {
	return b.sb.readMemory(ptr, length)
}

func (b *hostBridge) writeMem(ptr uint32, data []byte) error {
	return b.sb.writeMemory(ptr, data)
}

func (b *hostBridge) checkValueSize(n uint32) error {
	if n > b.hc.Schedule.MaxValueSize {
		return ErrValueTooLarge
	}
	return nil
}

// writeOutBuf copies data into the sandbox at ptr, bounded by the caller's
// declared buffer capacity read from lenPtr (a little-endian u32: capacity
// in, bytes actually written out) — the in/out length-pointer convention
// seal_call/seal_instantiate use to hand a sub-call's output back to the
// contract that made it.
func (b *hostBridge) writeOutBuf(ptr, lenPtr uint32, data []byte) error {
	capBytes, err := b.readMem(lenPtr, 4)
	if err != nil {
		return err
	}
	capacity := binary.LittleEndian.Uint32(capBytes)
	n := uint32(len(data))
	if n > capacity {
		n = capacity
	}
	if n > 0 {
		if err := b.writeMem(ptr, data[:n]); err != nil {
			return err
		}
	}
	var written [4]byte
	binary.LittleEndian.PutUint32(written[:], n)
	return b.writeMem(lenPtr, written[:])
}

// table builds the set of host functions exposed to the sandbox: storage
// get/set, value transfer, inner call, inner instantiate, terminate,
// deposit event, restore-to, random, block number, gas price, return, set
// rent allowance and println. It exposes no balance query, no caller query
// and no hashing function.
func (b *hostBridge) table() map[string]hostFunc {
	svc := b.hc.Services
	sched := b.hc.Schedule

	fns := map[string]hostFunc{
		"seal_get_storage": func(args []uint64) (uint64, error) {
			keyPtr, keyLen := uint32(args[0]), uint32(args[1])
			outPtr := uint32(args[2])
			if err := b.charge(sched.SandboxRead); err != nil {
				return 0, err
			}
			if err := b.charge(uint64(keyLen) * sched.SandboxRead); err != nil {
				return 0, err
			}
			keyBytes, err := b.readMem(keyPtr, keyLen)
			if err != nil {
				return 0, err
			}
			var key [32]byte
			copy(key[:], keyBytes)
			v, ok := svc.GetStorage(key)
			if !ok {
				return 1, nil // ReturnCode: KeyNotFound
			}
			if err := b.charge(uint64(len(v)) * sched.SandboxRead); err != nil {
				return 0, err
			}
			if err := b.writeMem(outPtr, v); err != nil {
				return 0, err
			}
			return 0, nil
		},
		"seal_set_storage": func(args []uint64) (uint64, error) {
			keyPtr, keyLen := uint32(args[0]), uint32(args[1])
			valPtr, valLen := uint32(args[2]), uint32(args[3])
			if err := b.charge(sched.SandboxWrite); err != nil {
				return 0, err
			}
			if err := b.checkValueSize(valLen); err != nil {
				return 0, err
			}
			keyBytes, err := b.readMem(keyPtr, keyLen)
			if err != nil {
				return 0, err
			}
			var value []byte
			if valLen > 0 {
				value, err = b.readMem(valPtr, valLen)
				if err != nil {
					return 0, err
				}
			}
			var key [32]byte
			copy(key[:], keyBytes)
			delta, err := svc.SetStorage(key, value)
			if err != nil {
				return 0, err
			}
			if delta > 0 {
				if err := b.charge(uint64(delta) * sched.SandboxWrite); err != nil {
					return 0, err
				}
			}
			return 0, nil
		},
		"seal_call": func(args []uint64) (uint64, error) {
			if err := b.charge(sched.CallBase); err != nil {
				return 0, err
			}
			destPtr := uint32(args[0])
			valueHi, valueLo := args[1], args[2]
			inputPtr, inputLen := uint32(args[3]), uint32(args[4])
			outputPtr, outputLenPtr := uint32(args[5]), uint32(args[6])
			destBytes, err := b.readMem(destPtr, 20)
			if err != nil {
				return 0, err
			}
			var dest collab.AccountID
			copy(dest[:], destBytes)
			input, err := b.readMem(inputPtr, inputLen)
			if err != nil {
				return 0, err
			}
			output, status, err := svc.Call(dest, valueHi, valueLo, input, b.hc.Meter.GasLeft())
			if err != nil {
				return 0, err
			}
			if err := b.writeOutBuf(outputPtr, outputLenPtr, output); err != nil {
				return 0, err
			}
			return uint64(status), nil
		},
		"seal_instantiate": func(args []uint64) (uint64, error) {
			if err := b.charge(sched.InstantiateBase); err != nil {
				return 0, err
			}
			codeHashPtr := uint32(args[0])
			endowHi, endowLo := args[1], args[2]
			inputPtr, inputLen := uint32(args[3]), uint32(args[4])
			addressPtr, addressLenPtr := uint32(args[5]), uint32(args[6])
			outputPtr, outputLenPtr := uint32(args[7]), uint32(args[8])
			codeHashBytes, err := b.readMem(codeHashPtr, 32)
			if err != nil {
				return 0, err
			}
			var codeHash collab.CodeHash
			copy(codeHash[:], codeHashBytes)
			input, err := b.readMem(inputPtr, inputLen)
			if err != nil {
				return 0, err
			}
			newAccount, output, status, err := svc.Instantiate(codeHash, endowHi, endowLo, input, b.hc.Meter.GasLeft())
			if err != nil {
				return 0, err
			}
			if err := b.writeOutBuf(addressPtr, addressLenPtr, newAccount[:]); err != nil {
				return 0, err
			}
			if err := b.writeOutBuf(outputPtr, outputLenPtr, output); err != nil {
				return 0, err
			}
			return uint64(status), nil
		},
		"seal_transfer": func(args []uint64) (uint64, error) {
			if err := b.charge(sched.CallBase); err != nil {
				return 0, err
			}
			destPtr := uint32(args[0])
			valueHi, valueLo := args[1], args[2]
			destBytes, err := b.readMem(destPtr, 20)
			if err != nil {
				return 0, err
			}
			var dest collab.AccountID
			copy(dest[:], destBytes)
			if err := svc.Transfer(dest, valueHi, valueLo); err != nil {
				return 1, nil
			}
			return 0, nil
		},
		"seal_terminate": func(args []uint64) (uint64, error) {
			beneficiaryBytes, err := b.readMem(uint32(args[0]), 20)
			if err != nil {
				return 0, err
			}
			var beneficiary collab.AccountID
			copy(beneficiary[:], beneficiaryBytes)
			return 0, svc.Terminate(beneficiary)
		},
		"seal_deposit_event": func(args []uint64) (uint64, error) {
			topicsPtr, topicsLen := uint32(args[0]), uint32(args[1])
			dataPtr, dataLen := uint32(args[2]), uint32(args[3])
			numTopics := topicsLen / 32
			if numTopics > sched.MaxEventTopics {
				return 0, errTooManyTopics
			}
			cost := sched.EventBase + uint64(numTopics)*sched.EventPerTopic + uint64(dataLen)*sched.EventPerByte
			if err := b.charge(cost); err != nil {
				return 0, err
			}
			raw, err := b.readMem(topicsPtr, topicsLen)
			if err != nil {
				return 0, err
			}
			topics := make([][32]byte, numTopics)
			for i := range topics {
				copy(topics[i][:], raw[i*32:(i+1)*32])
			}
			data, err := b.readMem(dataPtr, dataLen)
			if err != nil {
				return 0, err
			}
			return 0, svc.DepositEvent(topics, data)
		},
		"seal_restore_to": func(args []uint64) (uint64, error) {
			if err := b.charge(sched.CallBase); err != nil {
				return 0, err
			}
			destBytes, err := b.readMem(uint32(args[0]), 20)
			if err != nil {
				return 0, err
			}
			codeHashBytes, err := b.readMem(uint32(args[1]), 32)
			if err != nil {
				return 0, err
			}
			var dest collab.AccountID
			copy(dest[:], destBytes)
			var codeHash collab.CodeHash
			copy(codeHash[:], codeHashBytes)
			rentAllowance := args[2]
			deltaPtr, deltaLen := uint32(args[3]), uint32(args[4])
			raw, err := b.readMem(deltaPtr, deltaLen*32)
			if err != nil {
				return 0, err
			}
			delta := make([][32]byte, deltaLen)
			for i := range delta {
				copy(delta[i][:], raw[i*32:(i+1)*32])
			}
			if err := svc.RestoreTo(dest, codeHash, rentAllowance, delta); err != nil {
				return 1, nil
			}
			return 0, nil
		},
		"seal_random": func(args []uint64) (uint64, error) {
			subjectPtr, subjectLen := uint32(args[0]), uint32(args[1])
			if subjectLen > sched.MaxSubjectLen {
				return 0, errSubjectTooLong
			}
			if err := b.charge(sched.RegularOpCost); err != nil {
				return 0, err
			}
			subject, err := b.readMem(subjectPtr, subjectLen)
			if err != nil {
				return 0, err
			}
			out := svc.Random(subject)
			return 0, b.writeMem(uint32(args[2]), out[:])
		},
		"seal_block_number": func(args []uint64) (uint64, error) {
			return svc.BlockNumber(), nil
		},
		"seal_gas_price": func(args []uint64) (uint64, error) {
			_, lo := svc.GasPrice()
			return lo, nil
		},
		"seal_return": func(args []uint64) (uint64, error) {
			flags := uint32(args[0])
			dataPtr, dataLen := uint32(args[1]), uint32(args[2])
			if err := b.charge(uint64(dataLen) * sched.ReturnDataPerByte); err != nil {
				return 0, err
			}
			data, err := b.readMem(dataPtr, dataLen)
			if err != nil {
				return 0, err
			}
			// seal_return always terminates the contract's execution (spec
			// §4.4's return protocol); a returnSignal panic is how that
			// unwind reaches sandbox.run through wagon's host-call boundary.
			panic(&returnSignal{output: data, reverted: flags&1 != 0})
		},
		"seal_set_rent_allowance": func(args []uint64) (uint64, error) {
			if err := b.charge(sched.SandboxWrite); err != nil {
				return 0, err
			}
			unlimited := args[0] != 0
			value := args[1]
			return 0, svc.SetRentAllowance(value, unlimited)
		},
		"seal_println": func(args []uint64) (uint64, error) {
			if !sched.EnablePrintln {
				return 0, nil
			}
			msg, err := b.readMem(uint32(args[0]), uint32(args[1]))
			if err != nil {
				return 0, err
			}
			svc.Println(string(msg))
			return 0, nil
		},
	}
	return fns
}
