package stratum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateSubmitIDsStartAboveHandshakeReservedIDs(t *testing.T) {
	s := NewState()
	id1 := s.NextSubmitID(ShareCandidate{JobID: "a"})
	id2 := s.NextSubmitID(ShareCandidate{JobID: "b"})

	assert.Greater(t, id1, uint64(2))
	assert.Greater(t, id2, id1)
}

func TestTakePendingRemovesEntry(t *testing.T) {
	s := NewState()
	id := s.NextSubmitID(ShareCandidate{JobID: "job1", Nonce: 42})

	p, ok := s.TakePending(id)
	require.True(t, ok)
	assert.Equal(t, "job1", p.Candidate.JobID)
	assert.Equal(t, uint32(42), p.Candidate.Nonce)

	_, ok = s.TakePending(id)
	assert.False(t, ok)
}

func TestSetJobIncrementsJobsSeen(t *testing.T) {
	s := NewState()
	assert.Equal(t, uint64(0), s.JobsSeen())

	s.SetJob(Job{JobID: "j1"})
	s.SetJob(Job{JobID: "j2"})
	assert.Equal(t, uint64(2), s.JobsSeen())

	j, ok := s.Job()
	require.True(t, ok)
	assert.Equal(t, "j2", j.JobID)
}

func TestIsStaleWithNoJobIsStale(t *testing.T) {
	s := NewState()
	assert.True(t, s.IsStale(time.Now(), time.Minute))
}

func TestIsStaleRespectsMaxAge(t *testing.T) {
	s := NewState()
	now := time.Unix(1000, 0)
	s.SetJob(Job{JobID: "j1", ReceivedAt: now})

	assert.False(t, s.IsStale(now.Add(5*time.Second), 10*time.Second))
	assert.True(t, s.IsStale(now.Add(20*time.Second), 10*time.Second))
}

func TestDifficultyAndSubscribeInfoRoundTrip(t *testing.T) {
	s := NewState()
	_, ok := s.Difficulty()
	assert.False(t, ok)
	_, ok = s.SubscribeInfo()
	assert.False(t, ok)

	d, err := NewDifficulty(64)
	require.NoError(t, err)
	s.SetDifficulty(d)

	got, ok := s.Difficulty()
	require.True(t, ok)
	assert.Equal(t, d.Value, got.Value)

	info := SubscribeInfo{ExtraNonce1Hex: "abcd", ExtraNonce2Size: 4}
	s.SetSubscribeInfo(info)
	gotInfo, ok := s.SubscribeInfo()
	require.True(t, ok)
	assert.Equal(t, "abcd", gotInfo.ExtraNonce1Hex)
}

func TestIncrStaleJobsCounts(t *testing.T) {
	s := NewState()
	assert.Equal(t, uint64(0), s.StaleJobs())
	s.IncrStaleJobs()
	s.IncrStaleJobs()
	assert.Equal(t, uint64(2), s.StaleJobs())
}
