package tdigest

import (
	"fmt"
	"math"
)

// Centroid summarizes Weight observations collapsed together around their
// mean.
//
type Centroid struct {
	Mean   float64
	Weight float64
}

func (c Centroid) String() string {
	return fmt.Sprintf("c{%g x%g}", c.Mean, c.Weight)
}

// merge returns the centroid resulting from collapsing c and o together. The
// resulting mean never leaves the interval delimited by both means, even in
// the face of rounding.
//
func (c Centroid) merge(o Centroid) Centroid {
	w := c.Weight + o.Weight

	lo, hi := c.Mean, o.Mean
	if lo > hi {
		lo, hi = hi, lo
	}

	mean := (c.Mean*c.Weight + o.Mean*o.Weight) / w

	return Centroid{
		Mean:   math.Max(lo, math.Min(mean, hi)),
		Weight: w,
	}
}
