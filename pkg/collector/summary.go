package collector

import (
	"fmt"

	"github.com/cirocosta/tdigest/pkg/tdigest"
)

// defaultQuantiles is the default set of quantiles computed for a given data
// stream that we want to summarize.
//
// these will be used by default by any Summary unless initialized with the
// `WithQuantiles` option to override it.
//
var defaultQuantiles = []float64{
	0.05,
	0.10,
	0.25,
	0.50,
	0.75,
	0.90,
	0.95,
	0.99,
	1.00,
}

// defaultCapacity is the number of centroids a Summary keeps unless
// overridden with `WithCapacity`.
//
const defaultCapacity = 100

// Summary accumulates observations into a digest, reporting count, sum and
// a fixed set of quantiles.
//
// Summary is not safe for concurrent use.
//
type Summary struct {
	quantiles []float64
	capacity  int
	state     *tdigest.State

	// digest caches the digest computed out of `state`. It's reset by any
	// mutation.
	//
	digest *tdigest.Digest

	// version is bumped by every mutation, telling clones apart from the
	// summary they were taken from once it moved on.
	//
	version uint64
}

type SummaryOption func(s *Summary)

func WithQuantiles(v []float64) SummaryOption {
	return func(s *Summary) {
		s.quantiles = v
	}
}

func WithCapacity(v int) SummaryOption {
	return func(s *Summary) {
		s.capacity = v
	}
}

func NewSummary(opts ...SummaryOption) (*Summary, error) {
	summary := &Summary{
		quantiles: cloneSlice(defaultQuantiles),
		capacity:  defaultCapacity,
	}

	for _, opt := range opts {
		opt(summary)
	}

	state, err := tdigest.NewState(summary.capacity)
	if err != nil {
		return nil, fmt.Errorf("new state: %w", err)
	}

	summary.state = state

	return summary, nil
}

func (s *Summary) Insert(v float64) {
	s.state.Push(v)
	s.digest = nil
	s.version++
}

// Merge folds a state built elsewhere into the summary.
//
func (s *Summary) Merge(o *tdigest.State) {
	s.state = tdigest.Merge(s.state, o)
	s.digest = nil
	s.version++
}

// State returns a copy of the underlying state.
//
func (s *Summary) State() *tdigest.State {
	return s.state.Clone()
}

func (s *Summary) Clone() *Summary {
	return &Summary{
		quantiles: cloneSlice(s.quantiles),
		capacity:  s.capacity,
		state:     s.state.Clone(),
		digest:    s.digest,
		version:   s.version,
	}
}

// adopt keeps the digest computed by clone, a Clone of s, if s hasn't been
// mutated since.
//
func (s *Summary) adopt(clone *Summary) {
	if s.digest == nil && s.version == clone.version {
		s.digest = clone.digest
	}
}

func (s *Summary) Count() uint64 {
	return uint64(s.compute().Count())
}

func (s *Summary) Sum() float64 {
	return s.compute().Sum()
}

func (s *Summary) Min() float64 {
	return s.compute().Min()
}

func (s *Summary) Max() float64 {
	return s.compute().Max()
}

func (s *Summary) Quantiles() map[float64]float64 {
	d := s.compute()
	if d.Empty() {
		return map[float64]float64{}
	}

	return d.Quantiles(s.quantiles...)
}

func (s *Summary) compute() *tdigest.Digest {
	if s.digest == nil {
		s.digest = s.state.Digest()
	}

	return s.digest
}

func cloneSlice(o []float64) []float64 {
	return append([]float64(nil), o...)
}
