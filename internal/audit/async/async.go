package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/screener/internal/audit"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 5 * time.Second
)

// Option configures an Async sink.
type Option func(*Sink)

// WithBufferSize sets the queue capacity.
func WithBufferSize(n int) Option {
	return func(s *Sink) { s.bufSize = n }
}

// WithDrainTimeout bounds how long Close waits for queued records.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *Sink) { s.drainTimeout = d }
}

// WithOnError sets the callback for failed writes to the inner sink.
func WithOnError(f func(error)) Option {
	return func(s *Sink) { s.onError = f }
}

// WithBlockOnFull makes Write wait for queue space instead of dropping.
func WithBlockOnFull() Option {
	return func(s *Sink) { s.block = true }
}

// Sink moves audit writes off the request path. Records are queued and a
// single goroutine delivers them to the inner sink. By default a full
// queue drops the record so a slow sink never delays a prediction.
type Sink struct {
	inner        audit.Sink
	ch           chan audit.Record
	done         chan struct{}
	ctx          context.Context // cancelled when the drain timeout expires
	cancel       context.CancelFunc
	onError      func(error)
	bufSize      int
	drainTimeout time.Duration
	block        bool

	dropped   atomic.Int64
	mu        sync.RWMutex // guards closed against concurrent Write
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// New wraps inner and starts the delivery goroutine.
func New(inner audit.Sink, opts ...Option) *Sink {
	s := &Sink{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		onError:      func(err error) { slog.Warn("audit write failed", "error", err) },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ch = make(chan audit.Record, s.bufSize)
	s.done = make(chan struct{})
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.drain()
	return s
}

// Write queues rec. It never returns the inner sink's error.
func (s *Sink) Write(ctx context.Context, rec audit.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return nil
	}

	if s.block {
		select {
		case s.ch <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	select {
	case s.ch <- rec:
	default:
		s.dropped.Add(1)
		slog.Warn("audit queue full, dropping record", "id", rec.ID)
	}
	return nil
}

// Dropped reports how many records were discarded.
func (s *Sink) Dropped() int64 { return s.dropped.Load() }

// Close stops accepting records and waits up to the drain timeout for the
// queue to empty. Past the timeout the write in progress is cancelled and
// the remaining records are dropped. The inner sink is closed only after
// the delivery goroutine has exited.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()

		select {
		case <-s.done:
		case <-time.After(s.drainTimeout):
			slog.Warn("audit queue drain timed out", "pending", len(s.ch))
			s.cancel()
			<-s.done
		}
		s.cancel()
		s.closeErr = s.inner.Close()
	})
	return s.closeErr
}

func (s *Sink) drain() {
	defer close(s.done)
	for rec := range s.ch {
		if s.ctx.Err() != nil {
			s.dropped.Add(1)
			continue
		}
		if err := s.inner.Write(s.ctx, rec); err != nil {
			s.onError(err)
		}
	}
}
