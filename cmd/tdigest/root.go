package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cirocosta/tdigest/pkg/digestfile"
	"github.com/cirocosta/tdigest/pkg/ingest"
	"github.com/cirocosta/tdigest/pkg/tdigest"
)

// globals holds the flags shared by every subcommand.
//
type globals struct {
	verbose     bool
	maxCapacity int
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:          "tdigest",
		Short:        "build, merge and query mergeable quantile digests",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v",
		false, "log what's going on")

	cmd.PersistentFlags().IntVar(&g.maxCapacity, "max-capacity",
		digestfile.DefaultMaxCapacity, "largest capacity accepted from digest files")

	cmd.AddCommand(
		(&buildCommand{globals: g}).Cmd(),
		(&mergeCommand{globals: g}).Cmd(),
		(&queryCommand{globals: g}).Cmd(),
		(&serveCommand{globals: g}).Cmd(),
		newVersionCmd(),
	)

	return cmd
}

// logger returns a development logger when running verbosely, and one that
// discards everything otherwise.
//
func (g *globals) logger(name string) (logr.Logger, error) {
	if !g.verbose {
		return logr.Discard(), nil
	}

	l, err := zap.NewDevelopment()
	if err != nil {
		return logr.Discard(), fmt.Errorf("zap new development: %w", err)
	}

	return zapr.NewLogger(l.Named(name)), nil
}

// readFile reads a digest file, enforcing --max-capacity.
//
func (g *globals) readFile(path string) (*tdigest.State, error) {
	return digestfile.ReadFile(path, digestfile.WithMaxCapacity(g.maxCapacity))
}

// openSources opens every file in paths as an ingest source, using stdin
// when paths is empty. The returned func closes them all.
//
func openSources(paths []string) ([]ingest.Source, func(), error) {
	if len(paths) == 0 {
		return []ingest.Source{{Name: "stdin", Reader: os.Stdin}}, func() {}, nil
	}

	var (
		srcs  []ingest.Source
		files []*os.File
	)

	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open '%s': %w", path, err)
		}

		files = append(files, f)
		srcs = append(srcs, ingest.Source{Name: path, Reader: f})
	}

	return srcs, closeAll, nil
}
