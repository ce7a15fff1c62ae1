// Package header assembles an 80-byte Bitcoin block header from a pool
// job, the connection's extranonce1, and a miner-chosen extranonce2,
// as a standalone, allocation-light component usable by both the scanner
// and tests.
package header

import (
	"encoding/binary"
	"fmt"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/hashcore"
)

// Job carries the subset of a stratum job needed to build a header. All
// byte slices are already decoded from hex by the stratum package; merkle
// branch entries are used exactly in the order received (no per-branch
// reversal at this layer). PrevHash is byte-reversed by Header76.
type Job struct {
	Coinb1        []byte
	Coinb2        []byte
	MerkleBranch  [][]byte
	Version       uint32
	PrevHash      [32]byte
	NTime         uint32
	NBits         uint32
}

// Assembler builds header prefixes for a fixed extranonce1.
type Assembler struct {
	ExtraNonce1 []byte
}

// MerkleRoot computes the coinbase double-SHA-256, folded with the job's
// merkle branch in the order received.
func (a Assembler) MerkleRoot(job Job, extraNonce2 []byte) [32]byte {
	coinbase := make([]byte, 0, len(job.Coinb1)+len(a.ExtraNonce1)+
		len(extraNonce2)+len(job.Coinb2))
	coinbase = append(coinbase, job.Coinb1...)
	coinbase = append(coinbase, a.ExtraNonce1...)
	coinbase = append(coinbase, extraNonce2...)
	coinbase = append(coinbase, job.Coinb2...)

	h := hashcore.Sha256d(coinbase)
	for _, branch := range job.MerkleBranch {
		buf := make([]byte, 0, 32+len(branch))
		buf = append(buf, h[:]...)
		buf = append(buf, branch...)
		h = hashcore.Sha256d(buf)
	}
	return h
}

// reverse32 returns the byte-reversal of a 32-byte big-endian value,
// i.e. the little-endian encoding of the same 256-bit quantity.
func reverse32(b [32]byte) [32]byte {
	var out [32]byte
	for i := range b {
		out[i] = b[31-i]
	}
	return out
}

// Header76 builds the 76-byte header prefix:
//
//	le32(version) || reverse(prevhash) || reverse(merkleRoot) || le32(ntime) || le32(nbits)
func (a Assembler) Header76(job Job, extraNonce2 []byte) [76]byte {
	merkleRoot := a.MerkleRoot(job, extraNonce2)
	revMerkle := reverse32(merkleRoot)
	revPrev := reverse32(job.PrevHash)

	var out [76]byte
	binary.LittleEndian.PutUint32(out[0:4], job.Version)
	copy(out[4:36], revPrev[:])
	copy(out[36:68], revMerkle[:])
	binary.LittleEndian.PutUint32(out[68:72], job.NTime)
	binary.LittleEndian.PutUint32(out[72:76], job.NBits)
	return out
}

// Header80 appends a little-endian nonce to a 76-byte prefix, producing
// the full header that gets double-SHA-256 hashed.
func Header80(prefix76 [76]byte, nonce uint32) [80]byte {
	var out [80]byte
	copy(out[:76], prefix76[:])
	binary.LittleEndian.PutUint32(out[76:80], nonce)
	return out
}

// ValidatePrefix is a programmer-error guard: header76 length must be
// exactly 76 bytes before it reaches the scanner.
func ValidatePrefix(prefix []byte) error {
	if len(prefix) != 76 {
		return fmt.Errorf("header: prefix must be 76 bytes, got %d", len(prefix))
	}
	return nil
}
