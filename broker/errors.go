package broker

import "errors"

var (
	// ErrExhaustsResources is spec §7's Economic error of the same name:
	// the requested gas, converted to block weight, would push the current
	// block past its weight ceiling (spec §4.8 step 1).
	ErrExhaustsResources = errors.New("broker: gas limit exhausts block resources")

	// ErrPayment is spec §7's Economic error of the same name: the fee
	// withdrawal from the signer failed (spec §4.8 step 2).
	ErrPayment = errors.New("broker: fee payment failed")
)
