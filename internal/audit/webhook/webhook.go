package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/crimson-sun/screener/internal/audit"
)

const (
	defaultBatchSize     = 20
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultBackoff       = time.Second
	maxRetries           = 3
)

// Option configures a webhook Sink.
type Option func(*Sink)

// WithHeaders sets extra HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(s *Sink) { s.headers = h }
}

// WithBatchSize sets how many records are buffered before a flush.
func WithBatchSize(n int) Option {
	return func(s *Sink) { s.batchSize = n }
}

// WithFlushInterval bounds how long a partial batch waits.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Sink) { s.flushInterval = d }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) { s.client.Timeout = d }
}

// WithBackoff sets the first retry delay; later retries double it.
func WithBackoff(d time.Duration) Option {
	return func(s *Sink) { s.backoff = d }
}

// WithOnError sets the callback for failed timer-driven flushes.
func WithOnError(f func(error)) Option {
	return func(s *Sink) { s.onError = f }
}

// batch is the POST body.
type batch struct {
	Records []audit.Record `json:"records"`
}

// Sink POSTs batches of audit records to an HTTP endpoint as
// {"records": [...]}. A batch is sent when it is full or when the flush
// interval elapses, whichever comes first. 5xx and 429 responses are
// retried with exponential backoff.
type Sink struct {
	client        *http.Client
	url           string
	headers       map[string]string
	verbosity     audit.Verbosity
	batchSize     int
	flushInterval time.Duration
	backoff       time.Duration
	onError       func(error)

	mu      sync.Mutex
	pending []audit.Record
	timer   *time.Timer
}

// New creates a webhook Sink for url.
func New(url string, verbosity audit.Verbosity, opts ...Option) *Sink {
	s := &Sink{
		client:        &http.Client{Timeout: defaultTimeout},
		url:           url,
		verbosity:     verbosity,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		backoff:       defaultBackoff,
		onError:       func(err error) { slog.Warn("audit webhook flush failed", "error", err) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write buffers rec, flushing synchronously when the batch is full.
func (s *Sink) Write(ctx context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, audit.Format(rec, s.verbosity))
	if len(s.pending) >= s.batchSize {
		return s.flushLocked(ctx)
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.flushInterval, s.timedFlush)
	}
	return nil
}

func (s *Sink) timedFlush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flushLocked(context.Background()); err != nil {
		s.onError(err)
	}
}

// Close sends any buffered records.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(context.Background())
}

// flushLocked sends the pending batch. Caller must hold s.mu.
func (s *Sink) flushLocked(ctx context.Context) error {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len(s.pending) == 0 {
		return nil
	}
	body, err := json.Marshal(batch{Records: s.pending})
	s.pending = nil
	if err != nil {
		return fmt.Errorf("audit webhook: marshal: %w", err)
	}
	return s.post(ctx, body)
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

func (s *Sink) post(ctx context.Context, body []byte) error {
	delay := s.backoff
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("audit webhook: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("audit webhook: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range s.headers {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("audit webhook: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("audit webhook: HTTP %d", resp.StatusCode)
		if !retryable(resp.StatusCode) {
			return lastErr
		}
	}
	return lastErr
}
