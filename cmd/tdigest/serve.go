package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cirocosta/tdigest/pkg/collector"
	"github.com/cirocosta/tdigest/pkg/exporter"
	"github.com/cirocosta/tdigest/pkg/ingest"
	"github.com/cirocosta/tdigest/pkg/tdigest"
)

type serveCommand struct {
	*globals

	telemetryPath string
	bindAddr      string
	series        string
	namespace     string
	capacity      int
	quantiles     []float64
	preload       []string
}

func (c *serveCommand) Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "digest observations from stdin and expose them to prometheus",
		Long: "Read observations from stdin, one per line, either as " +
			"`<value>` or `<series> <value>`, and serve them as " +
			"prometheus summaries along with their encoded digests.",
		Args: cobra.NoArgs,
		RunE: c.RunE,
	}

	cmd.Flags().StringVar(&c.bindAddr, "bind-addr",
		":9000", "address to bind the prometheus server to")

	cmd.Flags().StringVar(&c.telemetryPath, "telemetry-path",
		"/metrics", "endpoint at which prometheus metrics are served")

	cmd.Flags().StringVar(&c.series, "series",
		"default", "series observations without an explicit one go to")

	cmd.Flags().StringVar(&c.namespace, "namespace",
		"tdigest", "namespace of the metrics exposed")

	cmd.Flags().IntVar(&c.capacity, "capacity",
		tdigest.DefaultCapacity, "maximum number of centroids kept per series")

	cmd.Flags().Float64SliceVar(&c.quantiles, "quantile",
		[]float64{0.5, 0.9, 0.99}, "quantiles reported for each series")

	cmd.Flags().StringSliceVar(&c.preload, "merge",
		nil, "encoded digest files to merge into --series at startup")

	return cmd
}

func (c *serveCommand) RunE(cmd *cobra.Command, _ []string) error {
	log, err := c.logger("serve")
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	registry := prometheus.NewRegistry()

	coll, err := collector.New(
		collector.WithNamespace(c.namespace),
		collector.WithLogger(log.WithName("collector")),
		collector.WithSummaryOptions(
			collector.WithCapacity(c.capacity),
			collector.WithQuantiles(c.quantiles),
		),
	)
	if err != nil {
		return fmt.Errorf("new collector: %w", err)
	}

	if err := registry.Register(coll); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	for _, path := range c.preload {
		state, err := c.readFile(path)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}

		if err := coll.Merge(c.series, state); err != nil {
			return fmt.Errorf("merge '%s': %w", path, err)
		}
	}

	prometheusExporter, err := exporter.New(
		exporter.WithBindAddress(c.bindAddr),
		exporter.WithTelemetryPath(c.telemetryPath),
		exporter.WithGatherer(registry),
		exporter.WithSource(coll),
		exporter.WithLogger(log.WithName("exporter")),
	)
	if err != nil {
		return fmt.Errorf("new exporter: %w", err)
	}
	defer prometheusExporter.Close()

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		return prometheusExporter.Run(ctx)
	})

	g.Go(func() error {
		if err := c.observe(ctx, log, os.Stdin, coll); err != nil {
			return fmt.Errorf("observe: %w", err)
		}

		log.Info("stdin exhausted, still serving")

		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("wait: %w", err)
	}

	return nil
}

// observe reads lines from r until EOF, recording each into the collector.
//
func (c *serveCommand) observe(
	ctx context.Context, log logr.Logger, r io.Reader, coll *collector.Collector,
) error {
	return ingest.Scan(ctx, r, func(n int, line string) error {
		series, v, ok, err := parseObservation(line, c.series)
		if err != nil {
			log.Error(err, "skipping line", "line", n)
			return nil
		}

		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}

		if err := coll.Observe(series, v); err != nil {
			return fmt.Errorf("observe: %w", err)
		}

		return nil
	})
}

// parseObservation parses either `<value>` or `<series> <value>`.
//
func parseObservation(line, defaultSeries string) (string, float64, bool, error) {
	fields := strings.Fields(line)

	switch len(fields) {
	case 0:
		return "", 0, false, nil
	case 1:
		v, ok, err := ingest.ParseLine(fields[0])
		return defaultSeries, v, ok, err
	case 2:
		if strings.HasPrefix(fields[0], "#") {
			return "", 0, false, nil
		}

		v, ok, err := ingest.ParseLine(fields[1])
		return fields[0], v, ok, err
	default:
		if strings.HasPrefix(fields[0], "#") {
			return "", 0, false, nil
		}

		return "", 0, false, fmt.Errorf("expected at most 2 fields, got %d", len(fields))
	}
}
