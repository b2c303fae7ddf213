package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cirocosta/tdigest/pkg/digestfile"
	"github.com/cirocosta/tdigest/pkg/ingest"
	"github.com/cirocosta/tdigest/pkg/tdigest"
)

type buildCommand struct {
	*globals

	capacity int
	output   string
	compress bool
	lenient  bool
}

func (c *buildCommand) Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [file...]",
		Short: "digest newline-separated observations read from files (or stdin)",
		Long: "Digest newline-separated observations. Every file is " +
			"digested concurrently into its own state; states are then " +
			"merged and written to the output file.",
		RunE: c.RunE,
	}

	cmd.Flags().IntVar(&c.capacity, "capacity",
		tdigest.DefaultCapacity, "maximum number of centroids kept")

	cmd.Flags().StringVarP(&c.output, "output", "o",
		"", "file to write the encoded digest to")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagFilename("output")

	cmd.Flags().BoolVar(&c.compress, "compress",
		false, "compress the encoded digest with zstd")

	cmd.Flags().BoolVar(&c.lenient, "lenient",
		false, "skip lines that can't be parsed instead of failing")

	return cmd
}

func (c *buildCommand) RunE(cmd *cobra.Command, args []string) error {
	log, err := c.logger("build")
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	reader, err := ingest.New(c.capacity,
		ingest.WithLenient(c.lenient),
		ingest.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("new ingest reader: %w", err)
	}

	srcs, closeAll, err := openSources(args)
	if err != nil {
		return fmt.Errorf("open sources: %w", err)
	}
	defer closeAll()

	state, stats, err := reader.ReadAll(cmd.Context(), srcs...)
	if err != nil {
		return fmt.Errorf("read all: %w", err)
	}

	err = digestfile.WriteFile(c.output, state,
		digestfile.WithCompression(c.compress),
	)
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	log.WithValues(
		"output", c.output,
		"observations", stats.Observations,
		"skipped", stats.Skipped,
	).Info("built")

	return nil
}
