package gastype

import "github.com/holiman/uint256"

// Outcome distinguishes a successful charge from exhaustion (spec §4.1).
type Outcome uint8

const (
	Proceed Outcome = iota
	OutOfGas
)

// Meter is a bounded counter of fuel units, with a fixed per-unit price for
// the lifetime of the owning transaction (spec §3, §4.1).
//
// OutOfGas is sticky: once a Charge has returned OutOfGas, every subsequent
// Charge short-circuits without touching left again. Draining left to
// exactly zero with a charge that fits does not exhaust the meter.
type Meter struct {
	limit uint64
	left  uint64
	price *uint256.Int

	exhausted bool
}

// New builds a top-level meter for a transaction with the given limit and
// fixed gas price.
func New(limit uint64, price *uint256.Int) *Meter {
	return &Meter{limit: limit, left: limit, price: price}
}

// Charge saturating-subtracts amount from the remaining fuel. On underflow
// it zeroes left and returns OutOfGas; that state is sticky.
func (m *Meter) Charge(amount uint64) Outcome {
	if m.exhausted {
		return OutOfGas
	}
	if amount > m.left {
		m.left = 0
		m.exhausted = true
		return OutOfGas
	}
	m.left -= amount
	return Proceed
}

// Refund credits amount back to the remaining fuel, capped at the original
// limit. A meter that has already gone OutOfGas stays OutOfGas: refunds
// cannot undo stickiness, matching the teacher's refundGas which only ever
// operates on a meter that is still alive.
func (m *Meter) Refund(amount uint64) {
	if m.exhausted {
		return
	}
	m.left += amount
	if m.left > m.limit {
		m.left = m.limit
	}
}

// Nested creates a child meter bounded by min(subLimit, left). The returned
// Settle function must be called exactly once, when the child frame
// returns, to report how much the child actually spent back to the parent
// (spec §4.1: "parent learns how much the child actually spent").
func (m *Meter) Nested(subLimit uint64) (child *Meter, settle func()) {
	bound := subLimit
	if m.left < bound {
		bound = m.left
	}
	child = &Meter{limit: bound, left: bound, price: m.price}
	settle = func() {
		spent := child.limit - child.left
		m.Charge(spent)
	}
	return child, settle
}

// Spent returns the fuel consumed so far.
func (m *Meter) Spent() uint64 { return m.limit - m.left }

// GasLeft returns the remaining fuel.
func (m *Meter) GasLeft() uint64 { return m.left }

// Price returns the fixed gas price for this transaction.
func (m *Meter) Price() *uint256.Int { return m.price }

// OutOfGas reports whether the meter has been exhausted.
func (m *Meter) OutOfGas() bool { return m.exhausted }
