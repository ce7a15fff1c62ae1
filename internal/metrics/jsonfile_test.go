package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFileSinkWritesReadableSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	sink := NewJSONFileSink(path)

	sink.Report(Snapshot{
		Endpoint:  "pool.example.com:3333",
		Username:  "worker.1",
		Hashes:    1_000_000,
		Accepted:  3,
		StartedAt: time.Unix(0, 0).UTC(),
	})

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "pool.example.com:3333", got.Endpoint)
	assert.Equal(t, uint64(1_000_000), got.Hashes)
	assert.Equal(t, uint64(3), got.Accepted)

	assert.NoError(t, sink.Close())
}

func TestJSONFileSinkOverwritesOnSubsequentReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	sink := NewJSONFileSink(path)

	sink.Report(Snapshot{Hashes: 1})
	sink.Report(Snapshot{Hashes: 2})

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Snapshot
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, uint64(2), got.Hashes)

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected .tmp file to be renamed away, stat err=%v", err)
	}
}
