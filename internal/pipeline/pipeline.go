package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/screener/internal/audit"
	"github.com/crimson-sun/screener/internal/engine"
	"github.com/crimson-sun/screener/internal/model"
	"github.com/crimson-sun/screener/internal/validate"
)

const maxLineBytes = 1 << 20

// Evaluator runs one validated submission through the model context.
type Evaluator interface {
	Evaluate(ctx context.Context, sub model.Submission) (engine.Outcome, error)
	ClassifierName() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets how many submissions are evaluated concurrently.
// With more than one worker, records reach the sink out of input order.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithSource sets the audit record source label. Default: "batch".
func WithSource(s string) Option {
	return func(p *Pipeline) { p.source = s }
}

// Summary counts the outcome of a Run.
type Summary struct {
	Processed int                    `json:"processed"`
	Rejected  int                    `json:"rejected"`
	ByRisk    map[model.RiskTier]int `json:"by_risk"`
}

// Pipeline screens NDJSON submissions and writes one audit record per
// accepted line to a sink.
type Pipeline struct {
	eval    Evaluator
	sink    audit.Sink
	workers int
	source  string
}

// New creates a Pipeline.
func New(eval Evaluator, sink audit.Sink, opts ...Option) *Pipeline {
	p := &Pipeline{eval: eval, sink: sink, workers: 1, source: "batch"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// clientFault reports whether err is the submission's own fault, in which
// case the line is rejected and the run continues.
func clientFault(err error) bool {
	var (
		verr   *model.ValidationError
		encErr *model.EncodingError
	)
	return errors.As(err, &verr) || errors.As(err, &encErr)
}

// Run reads r line by line. Blank lines are skipped; lines that fail
// validation or encoding are logged and counted as rejected. Service
// faults, sink failures and read errors stop the run.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (Summary, error) {
	sum := Summary{ByRisk: map[model.RiskTier]int{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		if gctx.Err() != nil {
			break
		}
		data := append([]byte(nil), sc.Bytes()...)
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		n := line
		g.Go(func() error {
			rec, err := p.screen(gctx, data)
			if err != nil {
				if !clientFault(err) {
					return fmt.Errorf("pipeline: line %d: %w", n, err)
				}
				slog.Warn("submission rejected", "line", n, "error", err)
				mu.Lock()
				sum.Rejected++
				mu.Unlock()
				return nil
			}
			if err := p.sink.Write(gctx, rec); err != nil {
				return fmt.Errorf("pipeline: line %d: audit: %w", n, err)
			}
			mu.Lock()
			sum.Processed++
			sum.ByRisk[rec.RiskLevel]++
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err == nil && sc.Err() != nil {
		err = fmt.Errorf("pipeline: read: %w", sc.Err())
	}
	return sum, err
}

func (p *Pipeline) screen(ctx context.Context, data []byte) (audit.Record, error) {
	sub, err := validate.Decode(data)
	if err != nil {
		return audit.Record{}, err
	}
	out, err := p.eval.Evaluate(ctx, sub)
	if err != nil {
		return audit.Record{}, err
	}
	return audit.NewRecord(p.source, p.eval.ClassifierName(), out.Features, out.Verdict), nil
}
