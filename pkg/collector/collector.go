package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cirocosta/tdigest/pkg/tdigest"
)

// Collector implements the prometheus Collector interface, exposing every
// series of observations it has been fed as a summary (plus min and max
// gauges) whenever a prometheus scrape is received.
//
type Collector struct {
	// namespace prefixes the name of every metric exposed.
	//
	namespace string

	// summaryOpts are applied to every series' Summary at creation time.
	//
	summaryOpts []SummaryOption

	mu     sync.Mutex
	series map[string]*Summary

	summaryDesc *prometheus.Desc
	minDesc     *prometheus.Desc
	maxDesc     *prometheus.Desc

	log logr.Logger
}

// ensure that we implement prometheus' collector interface.
//
var _ prometheus.Collector = &Collector{}

// Option is a type used by functional arguments to mutate the collector to
// override default behavior.
//
type Option func(c *Collector)

// WithNamespace overrides the default `tdigest` metric namespace.
//
func WithNamespace(v string) Option {
	return func(c *Collector) {
		c.namespace = v
	}
}

// WithSummaryOptions configures how the summaries backing each series are
// created (quantiles reported, digest capacity).
//
func WithSummaryOptions(v ...SummaryOption) Option {
	return func(c *Collector) {
		c.summaryOpts = append(c.summaryOpts, v...)
	}
}

// WithLogger overrides the default development logger.
//
func WithLogger(v logr.Logger) Option {
	return func(c *Collector) {
		c.log = v
	}
}

// New instantiates a Collector that's not yet registered anywhere.
//
func New(opts ...Option) (*Collector, error) {
	defaultLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("zap new development: %w", err)
	}

	c := &Collector{
		namespace: "tdigest",
		series:    map[string]*Summary{},
		log:       zapr.NewLogger(defaultLogger.Named("collector")),
	}

	for _, opt := range opts {
		opt(c)
	}

	// fail early on bad summary options rather than on the first
	// observation.
	if _, err := NewSummary(c.summaryOpts...); err != nil {
		return nil, fmt.Errorf("new summary: %w", err)
	}

	c.summaryDesc = prometheus.NewDesc(
		prometheus.BuildFQName(c.namespace, "", "observations"),
		"distribution of the observations of a series",
		[]string{"series"}, nil,
	)

	c.minDesc = prometheus.NewDesc(
		prometheus.BuildFQName(c.namespace, "", "observations_min"),
		"smallest observation of a series",
		[]string{"series"}, nil,
	)

	c.maxDesc = prometheus.NewDesc(
		prometheus.BuildFQName(c.namespace, "", "observations_max"),
		"largest observation of a series",
		[]string{"series"}, nil,
	)

	return c, nil
}

// Register creates a collector and registers it with the global prometheus
// collectors registry making it available for an exporter to collect our
// metrics.
//
func Register(opts ...Option) (*Collector, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	if err := prometheus.Register(c); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	return c, nil
}

// Observe records v in the given series, creating it if needed.
//
func (c *Collector) Observe(series string, v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary, err := c.summary(series)
	if err != nil {
		return fmt.Errorf("summary '%s': %w", series, err)
	}

	summary.Insert(v)

	return nil
}

// Merge folds a state built elsewhere (e.g., decoded from another worker)
// into the given series.
//
func (c *Collector) Merge(series string, s *tdigest.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary, err := c.summary(series)
	if err != nil {
		return fmt.Errorf("summary '%s': %w", series, err)
	}

	summary.Merge(s)

	return nil
}

// Snapshot returns a copy of the state of a series.
//
func (c *Collector) Snapshot(series string) (*tdigest.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary, found := c.series[series]
	if !found {
		return nil, false
	}

	return summary.State(), true
}

// Series lists the names of every series, sorted.
//
func (c *Collector) Series() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// summary must be called with `mu` held.
//
func (c *Collector) summary(series string) (*Summary, error) {
	summary, found := c.series[series]
	if found {
		return summary, nil
	}

	summary, err := NewSummary(c.summaryOpts...)
	if err != nil {
		return nil, fmt.Errorf("new summary: %w", err)
	}

	c.series[series] = summary

	return summary, nil
}

// Describe implements the Describe function of the Collector interface.
//
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.summaryDesc
	ch <- c.minDesc
	ch <- c.maxDesc
}

// Collect implements the Collect function of the Collector interface.
//
// Series are copied while holding the lock; digesting them (which might
// involve flushing pending observations) happens concurrently afterwards so
// that observations aren't blocked for the duration of a scrape. Digests
// computed that way are handed back to the series that didn't change in the
// meantime.
//
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	snapshots := make(map[string]*Summary, len(c.series))
	for name, summary := range c.series {
		snapshots[name] = summary.Clone()
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		for name, snapshot := range snapshots {
			if summary, found := c.series[name]; found {
				summary.adopt(snapshot)
			}
		}
	}()

	g, _ := errgroup.WithContext(context.Background())

	for name, summary := range snapshots {
		name, summary := name, summary

		g.Go(func() error {
			if err := c.collectSeries(ch, name, summary); err != nil {
				return fmt.Errorf("series '%s': %w", name, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.log.Error(err, "wait")
	}
}

func (c *Collector) collectSeries(
	ch chan<- prometheus.Metric, name string, summary *Summary,
) error {
	if summary.Count() == 0 {
		return nil
	}

	metric, err := prometheus.NewConstSummary(
		c.summaryDesc,
		summary.Count(), summary.Sum(), summary.Quantiles(),
		name,
	)
	if err != nil {
		return fmt.Errorf("new const summary: %w", err)
	}

	ch <- metric

	ch <- prometheus.MustNewConstMetric(
		c.minDesc,
		prometheus.GaugeValue,
		summary.Min(),
		name,
	)

	ch <- prometheus.MustNewConstMetric(
		c.maxDesc,
		prometheus.GaugeValue,
		summary.Max(),
		name,
	)

	return nil
}
