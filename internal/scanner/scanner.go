// Package scanner implements the bounded nonce search: given a 76-byte
// header prefix and a 256-bit target, find the smallest nonce in a batch
// whose double-SHA-256 digest meets the target. Two backends are exposed —
// "scalar" (rehashes the full 80 bytes every nonce) and "midstate" (caches
// the SHA-256 state after the first 64 bytes) — that MUST agree on every
// input: scalar and midstate backends must always agree.
package scanner

import (
	"encoding/binary"
	"fmt"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/hashcore"
)

// Backend tags which implementation produced a Result.
type Backend string

const (
	BackendScalar   Backend = "scalar"
	BackendMidstate Backend = "midstate"
)

// Result is a found nonce together with the backend that found it.
type Result struct {
	Nonce   uint32
	Backend Backend
}

// MeetsTarget applies the Bitcoin share-acceptance comparison: walk the
// digest from byte 31 down to 0 and the target from byte 0 up to 31; the
// first differing byte decides, equality means the digest meets the
// target. This is equivalent to comparing the digest, read as a
// little-endian 256-bit integer, against the target, read as a big-endian
// 256-bit integer (the byte order stratum.NewDifficulty produces).
func MeetsTarget(digest [32]byte, target [32]byte) bool {
	for i, j := 31, 0; i >= 0; i, j = i-1, j+1 {
		switch {
		case digest[i] < target[j]:
			return true
		case digest[i] > target[j]:
			return false
		}
	}
	return true
}

// FindShareScalar is the naive reference backend: for every candidate
// nonce it rebuilds the full 80-byte header and runs sha256d from
// scratch. It exists to verify the midstate backend's equivalence
// property; FindShare does not use it.
func FindShareScalar(header76 [76]byte, target [32]byte, startNonce uint32, count uint32) (*Result, error) {
	if count == 0 {
		return nil, nil
	}

	nonce := startNonce
	for i := uint32(0); i < count; i++ {
		var msg [80]byte
		copy(msg[:76], header76[:])
		binary.LittleEndian.PutUint32(msg[76:80], nonce)

		digest := hashcore.Sha256d(msg[:])
		if MeetsTarget(digest, target) {
			return &Result{Nonce: nonce, Backend: BackendScalar}, nil
		}
		nonce++
	}
	return nil, nil
}

// FindShareMidstate precomputes the midstate of header76[0:64] once, then
// for each candidate nonce only compresses the fixed 64-byte second block
// (with the nonce patched into its 4-byte slot) and the 32-byte inner
// single-block hash.
func FindShareMidstate(header76 [76]byte, target [32]byte, startNonce uint32, count uint32) (*Result, error) {
	if count == 0 {
		return nil, nil
	}

	var block0 [64]byte
	copy(block0[:], header76[:64])
	mid := hashcore.Midstate(block0)

	var tail12 [12]byte
	copy(tail12[:], header76[64:76])
	tmpl := hashcore.SecondBlockTemplate(tail12)

	nonce := startNonce
	for i := uint32(0); i < count; i++ {
		block := tmpl
		binary.LittleEndian.PutUint32(block[12:16], nonce)

		outer := hashcore.FinishOneBlock(mid, block)
		digest := hashcore.SingleBlockHash(outer[:])

		if MeetsTarget(digest, target) {
			return &Result{Nonce: nonce, Backend: BackendMidstate}, nil
		}
		nonce++
	}
	return nil, nil
}

// FindShare is the scanner's public contract: the midstate backend by
// default, since it is the one the live client runs in its hot loop.
func FindShare(header76 [76]byte, target [32]byte, startNonce uint32, count uint32) (*Result, error) {
	return FindShareMidstate(header76, target, startNonce, count)
}

// ValidateHeaderLength is a programmer-error guard
// ProgrammerError: a header of any length other than 76 bytes must never
// reach the scanner.
func ValidateHeaderLength(header76 []byte) error {
	if len(header76) != 76 {
		return fmt.Errorf("scanner: header76 must be 76 bytes, got %d", len(header76))
	}
	return nil
}
