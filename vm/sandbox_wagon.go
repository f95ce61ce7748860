package vm

import (
	"bytes"
	"errors"
	"reflect"
	"sort"

	"github.com/decentchain/contracts-core/gastype"
	"github.com/go-interpreter/wagon/exec"
	"github.com/go-interpreter/wagon/wasm"
)

// hostModuleName is the import module name instrumented code calls host
// functions through, matching the "seal_*" host function convention used
// throughout host.go.
const hostModuleName = "env"

// sandbox wraps a single wagon-backed Wasm instance for one Invoke call.
// It is not reused across calls: spec §4.4 instantiates "a fresh sandbox"
// per invocation.
type sandbox struct {
	schedule gastype.Schedule
	module   *wasm.Module
	hostFns  map[string]hostFunc
	vm       *exec.VM
}

// newSandbox parses the instrumented module and checks each declared table's
// and memory's initial size against the schedule's MaxTableSize and
// MaxMemoryPages. MaxStackHeight is not checked or enforced here, and
// neither limit is applied to later growth of a table or memory. Host
// functions are bound separately, via bindHostFunctions,
// once the caller has a HostContext to close over — see executor.go.
func newSandbox(raw []byte, schedule gastype.Schedule) (*sandbox, error) {
	module, err := wasm.DecodeModule(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrCodeInvalid
	}
	if module.Table != nil {
		for _, e := range module.Table.Entries {
			if e.Limits.Initial > schedule.MaxTableSize {
				return nil, errors.New("vm: table exceeds MaxTableSize")
			}
		}
	}
	if module.Memory != nil {
		for _, e := range module.Memory.Entries {
			if e.Limits.Initial > schedule.MaxMemoryPages {
				return nil, errors.New("vm: memory exceeds MaxMemoryPages")
			}
		}
	}
	return &sandbox{schedule: schedule, module: module}, nil
}

// bindHostFunctions records the host function table this invocation will
// expose to the sandbox under the "env" import module.
func (sb *sandbox) bindHostFunctions(fns map[string]hostFunc) {
	sb.hostFns = fns
}

// run instantiates the sandbox's VM — wiring sb.hostFns in as the "env"
// import module — and invokes entry with input written at offset 0 of
// linear memory. Because host functions only ever fire
// from inside this call, sb.vm (and therefore readMemory/writeMemory) is
// always valid by the time any host function runs.
func (sb *sandbox) run(entry Entry, input []byte) ([]byte, Status, error) {
	hostModule := sb.buildHostModule()
	resolve := func(name string) (*wasm.Module, error) {
		if name == hostModuleName {
			return hostModule, nil
		}
		return nil, errors.New("vm: unresolved import module " + name)
	}

	vmod, err := wasm.ReadModule(bytes.NewReader(sb.rawFallback()), resolve)
	if err != nil {
		return nil, StatusReverted, ErrCodeInvalid
	}

	v, err := exec.NewVM(vmod)
	if err != nil {
		return nil, StatusReverted, ErrCodeInvalid
	}
	sb.vm = v

	entryIndex, ok := vmod.Export.Entries[string(entry)]
	if !ok {
		return nil, StatusReverted, ErrCodeInvalid
	}

	if len(input) > 0 {
		if err := sb.writeMemory(0, input); err != nil {
			return nil, StatusReverted, err
		}
	}

	ret, err := v.ExecCode(int64(entryIndex.Index), uint64(0), uint64(len(input)))
	if err != nil {
		// seal_return unwinds through exactly this recovery path: wagon's
		// VM recovers a panic raised inside a host call and hands it back
		// as err when it implements error, the same mechanism the existing
		// *Trap handling below relies on.
		if rs, ok := err.(*returnSignal); ok {
			status := StatusSuccess
			if rs.reverted {
				status = StatusReverted
			}
			return rs.output, status, nil
		}
		if tr, ok := err.(*Trap); ok {
			return nil, StatusReverted, tr.Err
		}
		return nil, StatusReverted, err
	}

	status := StatusSuccess
	if code, ok := ret.(uint64); ok && code != 0 {
		status = StatusReverted
	}
	// The entry point returned normally without calling seal_return: spec
	// §4.4's return protocol has no declared output buffer in that case.
	return nil, status, nil
}

// returnSignal is panicked by seal_return to end the sandbox's Wasm call
// immediately with the contract's declared output and status flag (spec
// §4.4's return protocol), rather than letting control fall back out
// through the entry point's own return value.
type returnSignal struct {
	output   []byte
	reverted bool
}

func (r *returnSignal) Error() string { return "vm: seal_return" }

// buildHostModule synthesizes a wasm.Module whose functions are Go
// closures, the mechanism wagon uses to let native code satisfy a Wasm
// import (each entry's Host field is a reflect.Value wrapping the
// closure). Export entries are populated alongside FunctionIndexSpace so
// wagon's name-based import resolver (see resolve in run, above) can bind
// an instrumented module's "env.seal_*" imports against them — without an
// Export section the host functions exist but can never be looked up by
// name.
func (sb *sandbox) buildHostModule() *wasm.Module {
	names := make([]string, 0, len(sb.hostFns))
	for name := range sb.hostFns {
		names = append(names, name)
	}
	sort.Strings(names)

	m := &wasm.Module{}
	entries := make(map[string]wasm.ExportEntry, len(names))
	for i, name := range names {
		fn := sb.hostFns[name]
		wrapped := func(proc *exec.Process, args ...uint64) uint64 {
			ret, err := fn(args)
			if err != nil {
				panic(&Trap{Err: err})
			}
			return ret
		}
		m.FunctionIndexSpace = append(m.FunctionIndexSpace, wasm.Function{
			Host: reflect.ValueOf(wrapped),
			Name: name,
		})
		entries[name] = wasm.ExportEntry{FieldStr: name, Kind: wasm.ExternalFunction, Index: uint32(i)}
	}
	m.Export = &wasm.SectionExports{Entries: entries}
	return m
}

// rawFallback re-serializes sb.module; wagon's ReadModule wants a fresh
// reader bound to the resolver above, so the module is decoded twice: once
// in newSandbox to validate schedule limits before any gas has been
// charged, and again here with imports resolved to the live host bridge.
func (sb *sandbox) rawFallback() []byte {
	var buf bytes.Buffer
	_ = wasm.WriteModule(&buf, sb.module)
	return buf.Bytes()
}

func (sb *sandbox) readMemory(ptr, length uint32) ([]byte, error) {
	mem := sb.vm.Memory()
	if err := boundsCheck(len(mem), ptr, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, mem[ptr:ptr+length])
	return out, nil
}

func (sb *sandbox) writeMemory(ptr uint32, data []byte) error {
	mem := sb.vm.Memory()
	if err := boundsCheck(len(mem), ptr, uint32(len(data))); err != nil {
		return err
	}
	copy(mem[ptr:ptr+uint32(len(data))], data)
	return nil
}
