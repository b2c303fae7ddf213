package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cirocosta/tdigest/pkg/tdigest"
)

type queryCommand struct {
	*globals

	quantiles []float64
	values    []float64
}

func (c *queryCommand) Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query file",
		Short: "print statistics and quantile estimates of an encoded digest",
		Args:  cobra.ExactArgs(1),
		RunE:  c.RunE,
	}

	cmd.Flags().Float64SliceVarP(&c.quantiles, "quantile", "q",
		[]float64{0.5, 0.9, 0.99}, "quantiles to estimate the value of")

	cmd.Flags().Float64SliceVar(&c.values, "value",
		nil, "values to estimate the quantile of")

	return cmd
}

func (c *queryCommand) RunE(cmd *cobra.Command, args []string) error {
	state, err := c.readFile(args[0])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	d := state.Finalize()
	if d == nil {
		return fmt.Errorf("'%s' holds no observations", args[0])
	}

	return c.print(cmd.OutOrStdout(), d)
}

func (c *queryCommand) print(w io.Writer, d *tdigest.Digest) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	fmt.Fprintf(tw, "count\t%g\n", d.Count())
	fmt.Fprintf(tw, "sum\t%g\n", d.Sum())
	fmt.Fprintf(tw, "min\t%g\n", d.Min())
	fmt.Fprintf(tw, "max\t%g\n", d.Max())
	fmt.Fprintf(tw, "mean\t%g\n", d.Mean())
	fmt.Fprintf(tw, "centroids\t%d/%d\n", d.Len(), d.Capacity())

	for _, q := range c.quantiles {
		fmt.Fprintf(tw, "quantile(%g)\t%g\n", q, d.Quantile(q))
	}

	for _, v := range c.values {
		fmt.Fprintf(tw, "quantile_at_value(%g)\t%g\n", v, d.QuantileAtValue(v))
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return nil
}
