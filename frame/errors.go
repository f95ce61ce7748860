package frame

import "errors"

var (
	// ErrMaxCallDepthReached is returned when a call or instantiate would
	// push the stack past schedule.MaxDepth (spec §4.5 step 1).
	ErrMaxCallDepthReached = errors.New("frame: max call depth reached")

	// ErrDuplicateContract is returned when an instantiate's derived
	// address already names a live or tombstoned contract (spec §4.5
	// instantiate step 2).
	ErrDuplicateContract = errors.New("frame: duplicate contract")
)
