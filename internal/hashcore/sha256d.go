// Package hashcore implements the double-SHA-256 primitive and the
// midstate compression step the nonce scanner uses to avoid rehashing the
// first 64 bytes of a block header on every candidate nonce.
package hashcore

import "crypto/sha256"

// Sha256d returns the Bitcoin double-SHA-256 digest of data.
func Sha256d(data []byte) [32]byte {
	h1 := sha256.Sum256(data)
	h2 := sha256.Sum256(h1[:])
	return h2
}
