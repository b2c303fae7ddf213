// Package collector exposes tdigest sketches as prometheus metrics.
//
// It implements the Prometheus collector interface: series of observations
// are accumulated in digests, and every scrape reports each of them as a
// summary (count, sum and quantiles) together with its min and max,
// allowing us to not have to rely on a particular interval defined in this
// exporter (instead, rely on prometheus' scrape interval).
//
package collector
