// Package gastype holds the gas meter (C1) and the versioned cost schedule
// (C2) that the rest of contracts-core charges against.
package gastype

import "errors"

// ErrScheduleStaleOrEqual is returned by Replace when governance
// attempts to install a schedule whose version does not strictly increase.
var ErrScheduleStaleOrEqual = errors.New("gastype: schedule version must strictly increase")

// Schedule is the immutable, versioned table of per-opcode and
// per-host-function costs and limits (spec §4.2, §6). It is a plain value
// object: governance replaces it wholesale, it never mutates in place.
type Schedule struct {
	Version uint32

	// Flat per-site charges (spec §4.1).
	GrowMemCost        uint64
	RegularOpCost      uint64
	ReturnDataPerByte  uint64
	EventBase          uint64
	EventPerTopic      uint64
	EventPerByte       uint64
	CallBase           uint64
	InstantiateBase    uint64
	SandboxRead        uint64
	SandboxWrite       uint64

	// Sandbox limits (spec §5).
	MaxEventTopics  uint32
	MaxStackHeight  uint32
	MaxMemoryPages  uint32
	MaxTableSize    uint32
	MaxSubjectLen   uint32
	MaxDepth        uint32
	MaxValueSize    uint32

	EnablePrintln bool

	// Module-level constants (spec §6); versioned alongside the rest of the
	// schedule since governance updates both together in practice.
	SignedClaimHandicap uint64
	TombstoneDeposit    uint64
	StorageSizeOffset   uint64
	RentByteFee         uint64
	RentDepositOffset   uint64
	SurchargeReward     uint64
}

// Default returns the v0 schedule, normative per spec §6.
func Default() Schedule {
	return Schedule{
		Version: 0,

		GrowMemCost:       1,
		RegularOpCost:     1,
		ReturnDataPerByte: 1,
		EventBase:         1,
		EventPerTopic:     1,
		EventPerByte:      1,
		CallBase:          135,
		InstantiateBase:   175,
		SandboxRead:       1,
		SandboxWrite:      1,

		MaxEventTopics: 4,
		MaxStackHeight: 65536,
		MaxMemoryPages: 16,
		MaxTableSize:   16384,
		MaxSubjectLen:  32,
		MaxDepth:       32,
		MaxValueSize:   16384,

		EnablePrintln: false,

		SignedClaimHandicap: 2,
		TombstoneDeposit:    16,
		StorageSizeOffset:   8,
		RentByteFee:         4,
		RentDepositOffset:   1000,
		SurchargeReward:     150,
	}
}

// Replace validates that next strictly increases the version over cur and
// returns it; governance is the only writer (spec §4.2, §4.9).
func Replace(cur, next Schedule) (Schedule, error) {
	if next.Version <= cur.Version {
		return cur, ErrScheduleStaleOrEqual
	}
	return next, nil
}
