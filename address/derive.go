// Package address derives deterministic contract identities (C7): the new
// contract's AccountID from its code, constructor input and origin, and a
// globally unique TrieID for its private child-storage subtree (spec §4.7).
package address

import (
	"encoding/binary"

	"github.com/decentchain/contracts-core/collab"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// reservedChildPrefix marks a key as naming a child-storage subtree rather
// than a top-level account entry (spec §4.7).
var reservedChildPrefix = []byte{0xff, 0xff, 0xff, 0xff}

// keccak256 is the hash H spec §4.7 names — Keccak-256, the pre-NIST-padding
// variant the go-ethereum/erigon family uses throughout (crypto.Keccak256),
// not the standardized sha3.Sum256/New256 pair.
func keccak256(parts ...[]byte) (out collab.CodeHash) {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	copy(out[:], h.Sum(nil))
	return out
}

// CodeDigest is the 256-bit hash put_code keys pristine and instrumented
// Wasm by (spec §4.9), the same hash DeriveAccount folds code_hash through.
func CodeDigest(code []byte) collab.CodeHash {
	return keccak256(code)
}

// DeriveAccount computes address(code_hash, input, origin) =
// H(H(code) ‖ H(input) ‖ origin), the same 256-bit hash used for state
// commitment (spec §4.7). It is a pure function of its inputs: calling it
// twice with identical arguments always yields the same account.
func DeriveAccount(codeHash collab.CodeHash, input []byte, origin collab.AccountID) collab.AccountID {
	inputHash := keccak256(input)
	digest := keccak256(codeHash[:], inputHash[:], origin[:])

	var out collab.AccountID
	copy(out[:], digest[len(digest)-len(out):])
	return out
}

// DeriveTrieID computes the TrieID for the counter'th instantiation owned
// by account (spec §4.7):
//
//	seed    = counter.to_little_endian()
//	trie_id = reserved_child_prefix ‖ "default:" ‖ H(account_id ‖ seed)
//
// Uniqueness across the chain's lifetime is enforced by the (counter,
// account) pair, not by the counter alone, so wraparound of the counter is
// acceptable (spec §4.7).
func DeriveTrieID(account collab.AccountID, counter uint64) collab.TrieID {
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], counter)

	h, _ := blake2b.New256(nil)
	h.Write(account[:])
	h.Write(seed[:])
	digest := h.Sum(nil)

	out := make([]byte, 0, len(reservedChildPrefix)+len("default:")+len(digest))
	out = append(out, reservedChildPrefix...)
	out = append(out, "default:"...)
	out = append(out, digest...)
	return collab.TrieID(out)
}

// AccountCounter is the monotonic 64-bit counter backing TrieID derivation
// (spec §4.7, §9's note that it "must be exposed through the storage
// collaborator, not as ambient statics"). It is owned by whichever store
// persists `AccountCounter` (spec §6); contracts-core only needs an atomic
// fetch-and-increment over it, modeled here as a plain method so tests can
// construct as many independent counters as they like.
type AccountCounter struct {
	next uint64
}

// Next atomically (within a single-threaded block executor, per spec §5)
// returns the current counter value and then increments it; the first call
// on a zero AccountCounter returns 0.
func (c *AccountCounter) Next() uint64 {
	v := c.next
	c.next++
	return v
}
