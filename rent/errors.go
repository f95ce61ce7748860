package rent

import "errors"

var (
	// ErrContractNotFound mirrors spec §7's Semantic error of the same name:
	// the rent engine was asked to transition an account with no ContractInfo.
	ErrContractNotFound = errors.New("rent: contract not found")

	// ErrCannotEvictCodeless is raised when Transition would evict a contract
	// that has no code_hash bound (spec §4.6: "A contract that is out of
	// storage-bearing code cannot be evicted").
	ErrCannotEvictCodeless = errors.New("rent: contract has no code, cannot be evicted")

	// ErrInvalidOriginForSurcharge is spec §7's InvalidOriginForSurcharge:
	// claim_surcharge was called in a shape the rent engine doesn't
	// recognize (neither a signed caller nor the aux-sender unsigned path).
	ErrInvalidOriginForSurcharge = errors.New("rent: invalid origin for surcharge claim")

	// ErrTombstoneMismatch is spec §7's TombstoneMismatch: the donor's
	// projected (delta, code_hash) does not hash to the tombstone stored at
	// the restoration's destination.
	ErrTombstoneMismatch = errors.New("rent: restoration does not match tombstone")

	// ErrDestinationNotTombstone is spec §9 Open Question (c): restore_to
	// against a live, non-tombstoned destination.
	ErrDestinationNotTombstone = errors.New("rent: restoration destination is not a tombstone")

	// ErrRestoreDonorWrittenThisBlock is spec §7's RestoreDonorWrittenThisBlock:
	// restoration is rejected when the donor wrote in the current block,
	// preventing front-running across the same block (spec §4.6).
	ErrRestoreDonorWrittenThisBlock = errors.New("rent: donor wrote in the current block")
)
