package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	reports  []Snapshot
	closeErr error
	closed   bool
}

func (s *recordingSink) Report(snap Snapshot) { s.reports = append(s.reports, snap) }
func (s *recordingSink) Close() error {
	s.closed = true
	return s.closeErr
}

func TestFanoutReportsToEverySink(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	f := Fanout([]Sink{a, b})

	snap := Snapshot{Hashes: 42}
	f.Report(snap)

	assert.Equal(t, []Snapshot{snap}, a.reports)
	assert.Equal(t, []Snapshot{snap}, b.reports)
}

func TestFanoutSkipsNilSinksWithoutPanicking(t *testing.T) {
	a := &recordingSink{}
	f := Fanout([]Sink{nil, a, nil})

	assert.NotPanics(t, func() { f.Report(Snapshot{}) })
	assert.Len(t, a.reports, 1)
}

func TestFanoutOfEmptySliceIsNonNilNoOp(t *testing.T) {
	f := Fanout(nil)
	assert.NotNil(t, f)
	assert.NotPanics(t, func() { f.Report(Snapshot{}) })
	assert.NoError(t, f.Close())
}

func TestFanoutCloseReturnsFirstError(t *testing.T) {
	errA := errors.New("sink a failed")
	a := &recordingSink{closeErr: errA}
	b := &recordingSink{closeErr: errors.New("sink b failed")}
	f := Fanout([]Sink{a, b})

	err := f.Close()
	assert.Equal(t, errA, err)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
