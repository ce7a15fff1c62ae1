package hashcore

import "encoding/binary"

// Scalar FIPS 180-4 SHA-256 compression, ported from the message-schedule
// and round-function shape of the Python reference's Numba kernel
// (fastscan_numba._compress) so the scanner can cache the state after the
// first 64-byte block and only recompute the second block per nonce.
// crypto/sha256 does not expose this intermediate state, which is why this
// package hand-rolls the compression function instead of reusing stdlib.

var k = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

var h0 = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

func rotr(x uint32, n uint) uint32 { return (x >> n) | (x << (32 - n)) }

// compress runs one FIPS 180-4 compression round of block over state,
// updating state in place. block must be exactly 64 bytes, loaded as
// big-endian 32-bit words per the standard.
func compress(state *[8]uint32, block []byte) {
	var w [64]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(block[i*4 : i*4+4])
	}
	for i := 16; i < 64; i++ {
		s0 := rotr(w[i-15], 7) ^ rotr(w[i-15], 18) ^ (w[i-15] >> 3)
		s1 := rotr(w[i-2], 17) ^ rotr(w[i-2], 19) ^ (w[i-2] >> 10)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, d, e, f, g, h := state[0], state[1], state[2], state[3],
		state[4], state[5], state[6], state[7]

	for i := 0; i < 64; i++ {
		bsig1 := rotr(e, 6) ^ rotr(e, 11) ^ rotr(e, 25)
		ch := (e & f) ^ (^e & g)
		t1 := h + bsig1 + ch + k[i] + w[i]
		bsig0 := rotr(a, 2) ^ rotr(a, 13) ^ rotr(a, 22)
		maj := (a & b) ^ (a & c) ^ (b & c)
		t2 := bsig0 + maj

		h = g
		g = f
		f = e
		e = d + t1
		d = c
		c = b
		b = a
		a = t1 + t2
	}

	state[0] += a
	state[1] += b
	state[2] += c
	state[3] += d
	state[4] += e
	state[5] += f
	state[6] += g
	state[7] += h
}

func stateBytes(state [8]uint32) [32]byte {
	var out [32]byte
	for i, w := range state {
		binary.BigEndian.PutUint32(out[i*4:i*4+4], w)
	}
	return out
}

// Midstate returns the SHA-256 state after compressing exactly one 64-byte
// block, without any padding. block0 must be 64 bytes.
func Midstate(block0 [64]byte) [8]uint32 {
	state := h0
	compress(&state, block0[:])
	return state
}

// FinishOneBlock completes a SHA-256 digest by compressing a single
// additional 64-byte block (containing the message tail, the 0x80
// terminator, zero padding and the 64-bit big-endian bit length) onto a
// cached midstate, then returns the resulting 32-byte digest.
func FinishOneBlock(state [8]uint32, block [64]byte) [32]byte {
	s := state
	compress(&s, block[:])
	return stateBytes(s)
}

// SingleBlockHash computes SHA-256 of a message known to be <= 55 bytes in
// a single 64-byte padded block, starting from the standard initial state.
// Used to finish the double-hash of an 80-byte header: the inner digest
// (32 bytes) always fits in one block.
func SingleBlockHash(msg []byte) [32]byte {
	if len(msg) > 55 {
		panic("hashcore: SingleBlockHash: message too long for one block")
	}
	var block [64]byte
	copy(block[:], msg)
	block[len(msg)] = 0x80
	bitLen := uint64(len(msg)) * 8
	binary.BigEndian.PutUint64(block[56:64], bitLen)

	state := h0
	compress(&state, block[:])
	return stateBytes(state)
}

// SecondBlockTemplate builds the fixed 64-byte second-block template for
// an 80-byte header: bytes [0:12) are bytes [64:76) of the 76-byte prefix
// (the last 4 bytes of the merkle root, ntime and nbits), bytes [12:16)
// are the nonce slot the caller overwrites, byte 16 is the 0x80
// terminator, bytes [17:62) are
// zero, and the last two bytes hold the big-endian bit length of an
// 80-byte message (640 = 0x0280).
func SecondBlockTemplate(headerTail12 [12]byte) (tmpl [64]byte) {
	copy(tmpl[0:12], headerTail12[:])
	tmpl[16] = 0x80
	binary.BigEndian.PutUint64(tmpl[56:64], 640)
	return tmpl
}
