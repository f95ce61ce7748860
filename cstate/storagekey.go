package cstate

import "golang.org/x/crypto/blake2b"

// HashStorageKey hashes an application-provided storage key with
// blake2-256 before it ever reaches child storage (spec §6: "Keys are
// 32-byte application-provided identifiers, hashed with blake2-256 before
// use").
func HashStorageKey(appKey []byte) [32]byte {
	return blake2b.Sum256(appKey)
}
