package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cirocosta/tdigest/pkg/tdigest"
)

// Source is a named stream of observations, one per line.
//
type Source struct {
	Name   string
	Reader io.Reader
}

// Stats summarizes what has been read from one or more sources.
//
type Stats struct {
	// Lines is the number of lines consumed, blank and comment lines
	// included.
	//
	Lines int

	// Observations is the number of values pushed into a state.
	//
	Observations int

	// Skipped is the number of values left out: non-finite ones, and
	// unparsable ones when reading leniently.
	//
	Skipped int
}

func (s *Stats) add(o Stats) {
	s.Lines += o.Lines
	s.Observations += o.Observations
	s.Skipped += o.Skipped
}

// Reader reads observations into tdigest states of a given capacity.
//
type Reader struct {
	capacity int

	// lenient makes unparsable lines be skipped rather than failing the
	// whole read.
	//
	lenient bool

	log logr.Logger
}

// Option is a functional argument that overrides the Reader's defaults.
//
type Option func(r *Reader)

// WithLenient configures whether unparsable lines are skipped (true) or
// abort the read (false, the default).
//
func WithLenient(v bool) Option {
	return func(r *Reader) {
		r.lenient = v
	}
}

// WithLogger overrides the default development logger.
//
func WithLogger(v logr.Logger) Option {
	return func(r *Reader) {
		r.log = v
	}
}

// New creates a Reader producing states of the given capacity.
//
func New(capacity int, opts ...Option) (*Reader, error) {
	if _, err := tdigest.NewState(capacity); err != nil {
		return nil, fmt.Errorf("new state: %w", err)
	}

	defaultLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("zap new development: %w", err)
	}

	r := &Reader{
		capacity: capacity,
		log:      zapr.NewLogger(defaultLogger.Named("ingest")),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// ReadState consumes src until EOF, pushing every observation into a new
// state.
//
func (r *Reader) ReadState(ctx context.Context, src Source) (*tdigest.State, Stats, error) {
	var stats Stats

	state, err := tdigest.NewState(r.capacity)
	if err != nil {
		return nil, stats, fmt.Errorf("new state: %w", err)
	}

	log := r.log.WithValues("source", src.Name)

	err = Scan(ctx, src.Reader, func(n int, line string) error {
		stats.Lines = n

		v, ok, err := ParseLine(line)
		switch {
		case err != nil && r.lenient:
			log.V(1).Info("skipping line", "line", n, "err", err.Error())
			stats.Skipped++
			return nil
		case err != nil:
			return fmt.Errorf("%s:%d: %w", src.Name, n, err)
		case !ok:
			return nil
		}

		if math.IsNaN(v) || math.IsInf(v, 0) {
			stats.Skipped++
			return nil
		}

		state.Push(v)
		stats.Observations++

		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	log.WithValues(
		"observations", stats.Observations,
		"skipped", stats.Skipped,
	).Info("read")

	return state, stats, nil
}

// ReadAll reads every source concurrently, each into its own state, and
// merges the results. The first failing source cancels the others.
//
func (r *Reader) ReadAll(ctx context.Context, srcs ...Source) (*tdigest.State, Stats, error) {
	var (
		total  Stats
		states = make([]*tdigest.State, len(srcs))
		stats  = make([]Stats, len(srcs))
	)

	g, ctx := errgroup.WithContext(ctx)

	for i, src := range srcs {
		i, src := i, src

		g.Go(func() error {
			state, st, err := r.ReadState(ctx, src)
			if err != nil {
				return fmt.Errorf("read state: %w", err)
			}

			states[i], stats[i] = state, st

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, total, fmt.Errorf("wait: %w", err)
	}

	var merged *tdigest.State
	for i := range states {
		merged = tdigest.Merge(merged, states[i])
		total.add(stats[i])
	}

	if merged == nil {
		state, err := tdigest.NewState(r.capacity)
		if err != nil {
			return nil, total, fmt.Errorf("new state: %w", err)
		}

		merged = state
	}

	return merged, total, nil
}

// Scan calls fn with every line read from r, numbered from 1, until r is
// exhausted, fn fails or ctx is done.
//
// Reading happens in a separate goroutine so that a reader blocked waiting
// for input (e.g., an idle stdin) doesn't hold Scan back once ctx is done.
// That goroutine stays blocked until r yields something or gets closed.
//
func Scan(ctx context.Context, r io.Reader, fn func(n int, line string) error) error {
	var (
		lines   = make(chan string)
		scanErr = make(chan error, 1)
		done    = make(chan struct{})
	)
	defer close(done)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}

		scanErr <- scanner.Err()
	}()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("ctx err: %w", ctx.Err())
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("scan: %w", err)
				}

				return nil
			}

			if err := ctx.Err(); err != nil {
				return fmt.Errorf("ctx err: %w", err)
			}

			if err := fn(n, line); err != nil {
				return err
			}
		}
	}
}

// ParseLine parses a single line. ok is false for blank lines and comments
// (lines starting with '#').
//
func ParseLine(line string) (v float64, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return 0, false, nil
	}

	v, err = strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse float: %w", err)
	}

	return v, true, nil
}
