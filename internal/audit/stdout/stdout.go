package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/screener/internal/audit"
)

// Sink writes JSON-encoded audit records, one per line, to a writer
// (os.Stdout by default).
type Sink struct {
	mu        sync.Mutex
	enc       *json.Encoder
	verbosity audit.Verbosity
}

// New creates a Sink on os.Stdout.
func New(verbosity audit.Verbosity, pretty bool) *Sink {
	return NewWriter(os.Stdout, verbosity, pretty)
}

// NewWriter creates a Sink on w.
func NewWriter(w io.Writer, verbosity audit.Verbosity, pretty bool) *Sink {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Sink{enc: enc, verbosity: verbosity}
}

func (s *Sink) Write(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(audit.Format(rec, s.verbosity)); err != nil {
		return fmt.Errorf("stdout sink: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	return nil
}
