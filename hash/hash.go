// Package hash derives the content-addressed identifiers used by the registry.
package hash

import (
	"encoding/binary"

	"github.com/minio/sha256-simd"
)

// MembershipDomain salts the nodes of the membership tree.
var MembershipDomain = []byte("curate/membership")

// ItemID is the identifier of an item with the given payload.
func ItemID(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// EvidenceGroupID identifies the evidence stream of a single request of an item.
func EvidenceGroupID(itemID [32]byte, requestIndex uint64) [32]byte {
	var buf [40]byte
	copy(buf[:32], itemID[:])
	binary.BigEndian.PutUint64(buf[32:], requestIndex)
	return sha256.Sum256(buf[:])
}

// GenMerkleHashFunc generates Merkle hash functions salted with a domain. The domain is prepended to the
// concatenation of the left- and right-child in the tree and the result is hashed using Sha256.
func GenMerkleHashFunc(domain []byte) func(lChild, rChild []byte) []byte {
	return func(lChild, rChild []byte) []byte {
		h := sha256.New()
		h.Write(domain)
		h.Write(lChild)
		h.Write(rChild)
		return h.Sum(nil)
	}
}
