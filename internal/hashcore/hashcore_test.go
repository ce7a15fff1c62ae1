package hashcore

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSha256dFixedVectors(t *testing.T) {
	zeros := make([]byte, 80)
	got := Sha256d(zeros)
	require.Equal(t, "4be7570e8f70eb093640c8468274ba759745a7aa2b7d25ab1e0421b259845014",
		hex.EncodeToString(got[:]))

	seq := make([]byte, 80)
	for i := range seq {
		seq[i] = byte(i)
	}
	got = Sha256d(seq)
	require.Equal(t, "852c98044fb00507122ff63bda7b529566348fc204f72b00dff1afd7b40501e4",
		hex.EncodeToString(got[:]))
}

// finishDigest reproduces what the scanner does: cache the midstate of the
// first 64 bytes, then finish the second block and the inner single-block
// hash, and must match Sha256d byte for byte.
func finishDigest(msg80 []byte) [32]byte {
	var block0 [64]byte
	copy(block0[:], msg80[:64])
	state := Midstate(block0)

	var block1 [64]byte
	copy(block1[:], msg80[64:80])
	block1[16] = 0x80
	block1[62] = 0x02
	block1[63] = 0x80

	outer := FinishOneBlock(state, block1)
	return SingleBlockHash(outer[:])
}

func TestMidstateConsistencyAcrossRandomMessages(t *testing.T) {
	for trial := 0; trial < 32; trial++ {
		msg := make([]byte, 80)
		for i := range msg {
			msg[i] = byte((trial*37 + i*13 + 7) % 256)
		}

		want := Sha256d(msg)
		got := finishDigest(msg)
		require.Equal(t, want, got, "trial %d", trial)
	}
}

func TestSingleBlockHashMatchesStdlib(t *testing.T) {
	msg := []byte("the quick brown fox")
	want := sha256.Sum256(msg)
	got := SingleBlockHash(msg)
	require.Equal(t, want, got)
}

func TestSecondBlockTemplateLayout(t *testing.T) {
	var tail [12]byte
	for i := range tail {
		tail[i] = byte(0xA0 + i)
	}
	tmpl := SecondBlockTemplate(tail)
	require.Equal(t, tail[:], tmpl[0:12])
	require.Equal(t, byte(0x80), tmpl[16])
	for i := 17; i < 62; i++ {
		require.Equal(t, byte(0), tmpl[i], "byte %d should be zero padding", i)
	}
	require.Equal(t, byte(0x02), tmpl[62])
	require.Equal(t, byte(0x80), tmpl[63])
}
