package contracts

import (
	"errors"
	"fmt"
)

// ErrCodeInvalid is spec §7's Code lifecycle error: put_code's
// instrumentation/validation backend rejected the submitted Wasm.
var ErrCodeInvalid = errors.New("contracts: code invalid or failed instrumentation")

// RevertedError wraps a contract's own non-trap exit (spec §7's
// "Contract-defined: ContractReverted(status_code, output_bytes) — distinct
// from trap"). Only the top-level transaction result surfaces to the user
// (spec §7); dispatch.go returns this from Call/Instantiate when the root
// frame returns vm.StatusReverted without an error.
type RevertedError struct {
	Output []byte
}

func (e *RevertedError) Error() string {
	return fmt.Sprintf("contracts: contract reverted (%d bytes of output)", len(e.Output))
}
