package stratum

import (
	"math/big"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/stratumerr"
)

// diff1Target is the Bitcoin difficulty-1 target: 0x00000000FFFF0000
// followed by 24 zero bytes (32 bytes total), i.e. 0xFFFF << 208. Built by
// shifting rather than transcribing a 64-hex-digit literal, so the
// constant can't be silently mistyped.
var diff1Target = new(big.Int).Lsh(big.NewInt(0xffff), 208)

var maxTarget = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Difficulty is a pool-set share difficulty and its derived 256-bit
// target.
type Difficulty struct {
	Value  float64
	Target [32]byte
}

// NewDifficulty computes target = floor(diff1Target / value), clamped to
// [1, 2^256-1]. The division is done in
// exact big-integer arithmetic (the float64 is converted to an exact
// big.Rat first) rather than via a float64 division, to avoid the
// precision loss the original Python implementation has.
func NewDifficulty(value float64) (Difficulty, error) {
	if value <= 0 {
		return Difficulty{}, stratumerr.Programmerf("difficulty must be > 0, got %v", value)
	}

	r := new(big.Rat).SetFloat64(value)
	if r == nil {
		return Difficulty{}, stratumerr.Programmerf("difficulty %v is not a finite float", value)
	}

	// floor(diff1Target / value) == floor(diff1Target * r.Denom() / r.Num())
	num := new(big.Int).Mul(diff1Target, r.Denom())
	target := new(big.Int).Quo(num, r.Num())

	if target.Sign() < 1 {
		target = big.NewInt(1)
	}
	if target.Cmp(maxTarget) > 0 {
		target = new(big.Int).Set(maxTarget)
	}

	var out [32]byte
	target.FillBytes(out[:])

	return Difficulty{Value: value, Target: out}, nil
}

// Monotone reports target(a) >= target(b) when a <= b, the testable
// property: a higher difficulty always yields a smaller-or-equal target.
func Monotone(a, b Difficulty) bool {
	ta := new(big.Int).SetBytes(a.Target[:])
	tb := new(big.Int).SetBytes(b.Target[:])
	if a.Value <= b.Value {
		return ta.Cmp(tb) >= 0
	}
	return ta.Cmp(tb) <= 0
}
