package vm

import "github.com/decentchain/contracts-core/gastype"

// hostFunc is a single host function's Go implementation: it receives the
// raw Wasm call arguments and returns a Wasm-visible return code, or an
// error that Invoke turns into a Trap.
type hostFunc func(args []uint64) (uint64, error)

// pageSize is the Wasm linear-memory page size (spec §5: "max_memory_pages
// × 64 KiB").
const pageSize = 64 * 1024

// boundsCheck validates a pointer+length pair against memLen, the sandbox's
// current memory size — every host function argument that names a sandbox
// buffer goes through this (spec §4.4 "(b) validate every argument...
// against the sandbox's memory bounds").
func boundsCheck(memLen int, ptr, length uint32) error {
	if length == 0 {
		return nil
	}
	end := uint64(ptr) + uint64(length)
	if end > uint64(memLen) {
		return ErrMemoryAccessOutOfBounds
	}
	return nil
}

// memoryLimitBytes converts the schedule's max_memory_pages into bytes
// (spec §5). newSandbox in sandbox_wagon.go compares page counts directly
// and does not call it.
func memoryLimitBytes(s gastype.Schedule) uint32 {
	return s.MaxMemoryPages * pageSize
}
