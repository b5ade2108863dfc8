package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/screener/internal/audit"
)

// Sink fans each record out to several sinks in order. A failing sink
// does not stop delivery to the rest.
type Sink struct {
	sinks []audit.Sink
}

// New returns a Sink over sinks. Nil entries are skipped.
func New(sinks ...audit.Sink) *Sink {
	m := &Sink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len reports the number of wrapped sinks.
func (m *Sink) Len() int { return len(m.sinks) }

func (m *Sink) Write(ctx context.Context, rec audit.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Sink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
