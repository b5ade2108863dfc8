package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/crimson-sun/screener/internal/audit"
)

const (
	defaultBufSize    = 32 * 1024
	defaultMaxBackups = 5
)

// Option configures a file Sink.
type Option func(*Sink)

// WithMaxSize sets the size in bytes at which the file is rotated.
// 0 disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(s *Sink) { s.maxSize = bytes }
}

// WithMaxBackups sets how many rotated files ({path}.1 .. {path}.N) are kept.
func WithMaxBackups(n int) Option {
	return func(s *Sink) { s.maxBackups = n }
}

// WithSync flushes and fsyncs after every record.
func WithSync() Option {
	return func(s *Sink) { s.sync = true }
}

// Sink appends audit records as NDJSON to a file, rotating by size.
type Sink struct {
	mu         sync.Mutex
	path       string
	verbosity  audit.Verbosity
	maxSize    int64
	maxBackups int
	sync       bool

	f       *os.File
	w       *bufio.Writer
	written int64
}

// New opens (or creates) path for appending. Parent directories are created.
func New(path string, verbosity audit.Verbosity, opts ...Option) (*Sink, error) {
	s := &Sink{path: path, verbosity: verbosity, maxBackups: defaultMaxBackups}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file sink: %w", err)
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) Write(_ context.Context, rec audit.Record) error {
	line, err := json.Marshal(audit.Format(rec, s.verbosity))
	if err != nil {
		return fmt.Errorf("file sink: marshal: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("file sink: closed")
	}

	if s.maxSize > 0 && s.written > 0 && s.written+int64(len(line)) > s.maxSize {
		if err := s.rotate(); err != nil {
			return fmt.Errorf("file sink: rotate: %w", err)
		}
	}

	n, err := s.w.Write(line)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("file sink: write: %w", err)
	}
	if s.sync {
		if err := s.w.Flush(); err != nil {
			return fmt.Errorf("file sink: flush: %w", err)
		}
		return s.f.Sync()
	}
	return nil
}

// Close flushes buffered records and closes the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	s.f, s.w = nil, nil
	if flushErr != nil {
		return fmt.Errorf("file sink: flush: %w", flushErr)
	}
	return closeErr
}

func (s *Sink) open() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("file sink: open %s: %w", s.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file sink: stat %s: %w", s.path, err)
	}
	s.f = f
	s.w = bufio.NewWriterSize(f, defaultBufSize)
	s.written = info.Size()
	return nil
}

// rotate moves the live file to {path}.1, shifting older backups up and
// dropping any beyond maxBackups. Caller must hold s.mu.
func (s *Sink) rotate() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if err := s.f.Close(); err != nil {
		return err
	}

	if s.maxBackups < 1 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return s.open()
	}

	os.Remove(s.backup(s.maxBackups))
	for i := s.maxBackups - 1; i >= 1; i-- {
		if err := os.Rename(s.backup(i), s.backup(i+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Rename(s.path, s.backup(1)); err != nil {
		return err
	}
	return s.open()
}

func (s *Sink) backup(i int) string {
	return fmt.Sprintf("%s.%d", s.path, i)
}
