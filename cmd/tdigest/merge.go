package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cirocosta/tdigest/pkg/digestfile"
	"github.com/cirocosta/tdigest/pkg/tdigest"
)

type mergeCommand struct {
	*globals

	output   string
	compress bool
}

func (c *mergeCommand) Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge file...",
		Short: "merge encoded digests into a single one",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.RunE,
	}

	cmd.Flags().StringVarP(&c.output, "output", "o",
		"", "file to write the merged digest to")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagFilename("output")

	cmd.Flags().BoolVar(&c.compress, "compress",
		false, "compress the encoded digest with zstd")

	return cmd
}

func (c *mergeCommand) RunE(_ *cobra.Command, args []string) error {
	log, err := c.logger("merge")
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	var merged *tdigest.State

	for _, path := range args {
		state, err := c.readFile(path)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}

		log.WithValues("file", path, "count", state.Count()).Info("merging")
		merged = tdigest.Merge(merged, state)
	}

	err = digestfile.WriteFile(c.output, merged,
		digestfile.WithCompression(c.compress),
	)
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
