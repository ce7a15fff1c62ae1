package metrics

// fanoutSink reports to every configured sink in turn. A nil/empty slice
// yields a Sink whose calls are no-ops, so callers never need a nil check.
type fanoutSink struct {
	sinks []Sink
}

// Fanout combines sinks into a single Sink. It always returns a non-nil
// Sink, even for an empty or nil slice.
func Fanout(sinks []Sink) Sink {
	return &fanoutSink{sinks: sinks}
}

func (f *fanoutSink) Report(snap Snapshot) {
	for _, s := range f.sinks {
		if s != nil {
			s.Report(snap)
		}
	}
}

func (f *fanoutSink) Close() error {
	var firstErr error
	for _, s := range f.sinks {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
