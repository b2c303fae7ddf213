package exporter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cirocosta/tdigest/pkg/tdigest"
)

// Source gives access to the digests being accumulated (e.g., see
// `pkg/collector`).
//
type Source interface {
	Snapshot(series string) (*tdigest.State, bool)
}

// Exporter is responsible for bringing up a web server that serves both the
// metrics that have been registered via prometheus collectors and the
// encoded digests themselves, so that other processes can merge them into
// their own.
//
type Exporter struct {
	// ListenAddress is the full address used by prometheus
	// to listen for scraping requests.
	//
	// Examples:
	// - :8080
	// - 127.0.0.2:1313
	//
	listenAddress string

	// TelemetryPath configures the path under which
	// the prometheus metrics are reported.
	//
	// For instance:
	// - /metrics
	// - /telemetry
	//
	telemetryPath string

	// digestPath is the prefix under which the encoded state of a series
	// is served, e.g. `/digest/latency`.
	//
	digestPath string

	gatherer prometheus.Gatherer
	source   Source

	// listener is the TCP listener used by the webserver. `nil` if no
	// server is running.
	//
	listener net.Listener
	server   *http.Server

	log logr.Logger
}

// Option.
//
type Option func(e *Exporter)

func WithBindAddress(v string) Option {
	return func(e *Exporter) {
		e.listenAddress = v
	}
}

func WithTelemetryPath(v string) Option {
	return func(e *Exporter) {
		e.telemetryPath = v
	}
}

func WithDigestPath(v string) Option {
	return func(e *Exporter) {
		e.digestPath = v
	}
}

// WithGatherer overrides the global prometheus registry as the source of
// the metrics served.
//
func WithGatherer(v prometheus.Gatherer) Option {
	return func(e *Exporter) {
		e.gatherer = v
	}
}

// WithSource enables serving encoded digests.
//
func WithSource(v Source) Option {
	return func(e *Exporter) {
		e.source = v
	}
}

func WithLogger(v logr.Logger) Option {
	return func(e *Exporter) {
		e.log = v
	}
}

// New.
//
func New(opts ...Option) (*Exporter, error) {
	defaultLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("zap new development: %w", err)
	}

	e := &Exporter{
		listenAddress: ":9000",
		telemetryPath: "/metrics",
		digestPath:    "/digest/",
		gatherer:      prometheus.DefaultGatherer,
		log:           zapr.NewLogger(defaultLogger.Named("exporter")),
	}

	for _, opt := range opts {
		opt(e)
	}

	if !strings.HasSuffix(e.digestPath, "/") {
		e.digestPath += "/"
	}

	return e, nil
}

// Handler returns the http handler serving metrics and digests.
//
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(e.telemetryPath, promhttp.HandlerFor(
		e.gatherer, promhttp.HandlerOpts{},
	))

	if e.source != nil {
		mux.HandleFunc(e.digestPath, e.handleDigest)
	}

	return mux
}

func (e *Exporter) handleDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	series := strings.TrimPrefix(r.URL.Path, e.digestPath)
	if series == "" {
		http.Error(w, "series not specified", http.StatusBadRequest)
		return
	}

	state, found := e.source.Snapshot(series)
	if !found {
		http.NotFound(w, r)
		return
	}

	b, err := tdigest.Encode(state)
	if err != nil {
		e.log.Error(err, "encode", "series", series)
		http.Error(w, "failed to encode digest", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(b); err != nil {
		e.log.Error(err, "write", "series", series)
	}
}

// Run initiates the HTTP server to serve the metrics.
//
// ps.: this is a BLOCKING method - make sure you either make use of goroutines
// to not block if needed.
//
func (e *Exporter) Run(ctx context.Context) error {
	var err error

	e.listener, err = net.Listen("tcp", e.listenAddress)
	if err != nil {
		return fmt.Errorf("listen on '%s': %w", e.listenAddress, err)
	}

	e.server = &http.Server{Handler: e.Handler()}

	doneChan := make(chan error, 1)

	go func() {
		defer close(doneChan)

		e.log.WithValues(
			"addr", e.listener.Addr().String(),
			"path", e.telemetryPath,
		).Info("listening")

		err := e.server.Serve(e.listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneChan <- fmt.Errorf(
				"failed listening on address %s: %w",
				e.listenAddress, err,
			)
		}
	}()

	select {
	case err = <-doneChan:
		if err != nil {
			return fmt.Errorf("donechan err: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("ctx err: %w", ctx.Err())
	}

	return nil
}

// Close gracefully closes the server and the tcp listener associated with
// it.
//
func (e *Exporter) Close() (err error) {
	if e.server == nil {
		return nil
	}

	e.log.Info("closing")
	if err := e.server.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}
