package collab

import "golang.org/x/crypto/blake2b"

// mixKV hashes a single key/value pair with blake2-256 so computeRoot can
// XOR-fold an unordered map into a single order-independent digest. Using
// blake2b here (rather than a cheap checksum) keeps MemChildStore's root a
// genuine stand-in for a real trie commitment: two subtrees only collide if
// their content does.
func mixKV(key [32]byte, value []byte) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write(key[:])
	h.Write(value)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
