package contracts

import (
	"github.com/decentchain/contracts-core/collab"
	"github.com/holiman/uint256"
)

// EventKind distinguishes the protocol-native events a dispatchable can
// emit from a contract's own deposited event (spec §4.9's event list; the
// Contract(account, data) variant is SPEC_FULL.md's supplemented passthrough
// for whatever a contract deposits via deposit_event).
type EventKind uint8

const (
	EventTransfer EventKind = iota
	EventInstantiated
	EventCodeStored
	EventScheduleUpdated
	EventDispatched
	EventContract
)

// Event is one entry in a Runtime's event log. Only the fields relevant to
// Kind are populated; the rest are left zero.
type Event struct {
	Kind EventKind

	From, To collab.AccountID
	Value    *uint256.Int

	Deployer, NewAccount collab.AccountID

	CodeHash collab.CodeHash

	Version uint32

	Origin  collab.AccountID
	Success bool

	Account collab.AccountID
	Data    []byte
}

// Log accumulates events emitted across dispatchables. A real chain would
// hand these to its event-index module; contracts-core just keeps them
// in-process the way frame.DeferredAction keeps per-frame intents, so
// tests can assert on exactly what was emitted (spec §9's worked
// scenarios all name expected events).
type Log struct {
	events []Event
}

func (l *Log) append(e Event) { l.events = append(l.events, e) }

// Events returns every event appended so far, in emission order.
func (l *Log) Events() []Event { return l.events }
