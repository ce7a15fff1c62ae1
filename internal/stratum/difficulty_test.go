package stratum

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDifficultyOneEqualsDiff1Target(t *testing.T) {
	d, err := NewDifficulty(1)
	require.NoError(t, err)

	got := new(big.Int).SetBytes(d.Target[:])
	assert.Equal(t, diff1Target.String(), got.String())
}

func TestNewDifficultyRejectsNonPositive(t *testing.T) {
	_, err := NewDifficulty(0)
	require.Error(t, err)

	_, err = NewDifficulty(-5)
	require.Error(t, err)
}

func TestNewDifficultyMonotoneAcrossSamples(t *testing.T) {
	samples := []float64{0.5, 1, 2, 16, 1024, 65536, 1e9}
	diffs := make([]Difficulty, len(samples))
	for i, v := range samples {
		d, err := NewDifficulty(v)
		require.NoError(t, err)
		diffs[i] = d
	}
	for i := 0; i < len(diffs)-1; i++ {
		assert.True(t, Monotone(diffs[i], diffs[i+1]),
			"target(%v) should be >= target(%v)", samples[i], samples[i+1])
	}
}

func TestNewDifficultyClampsTinyValueToMaxTarget(t *testing.T) {
	d, err := NewDifficulty(1e-30)
	require.NoError(t, err)
	got := new(big.Int).SetBytes(d.Target[:])
	assert.Equal(t, maxTarget.String(), got.String())
}

func TestNewDifficultyExactBigRatAvoidsFloatRounding(t *testing.T) {
	// 7 does not divide diff1Target (0xFFFF << 208) evenly; float64
	// division would round differently than the exact floor(diff1Target/7)
	// computed here.
	d, err := NewDifficulty(7)
	require.NoError(t, err)

	want := new(big.Int).Quo(diff1Target, big.NewInt(7))
	got := new(big.Int).SetBytes(d.Target[:])
	assert.Equal(t, want.String(), got.String())
}
