package metrics

import "errors"

// MultiSink fans events out to multiple sinks. Every sink receives every
// event, a failing sink does not starve the ones after it.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCommand forwards the event to all sinks and joins their errors.
func (m *MultiSink) RecordCommand(ev CommandEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordCommand(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordConnection forwards state transitions to sinks supporting them.
func (m *MultiSink) RecordConnection(ev ConnectionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ConnectionRecorder); ok {
			if err := rec.RecordConnection(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordFeedback forwards device feedback to sinks supporting it.
func (m *MultiSink) RecordFeedback(ev FeedbackEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(FeedbackRecorder); ok {
			if err := rec.RecordFeedback(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
