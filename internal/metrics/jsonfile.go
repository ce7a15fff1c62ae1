package metrics

import (
	"encoding/json"
	"os"
)

// JSONFileSink overwrites a file with the latest snapshot on every Report
// call, so a supervising process can poll it without parsing log lines.
type JSONFileSink struct {
	path string
}

func NewJSONFileSink(path string) *JSONFileSink {
	return &JSONFileSink{path: path}
}

func (s *JSONFileSink) Report(snap Snapshot) {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, s.path)
}

func (s *JSONFileSink) Close() error { return nil }
