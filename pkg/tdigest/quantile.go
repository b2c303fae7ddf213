package tdigest

import "math"

// The digest is read as a piecewise-linear cumulative distribution going
// through (0, min), through the centre of every centroid and ending at
// (count, max). The centre of centroid i sits at the cumulative weight of
// the centroids before it plus half its own weight.

// Quantile estimates the value below which a fraction q of the observations
// fall. q <= 0 yields Min and q >= 1 yields Max. The result is NaN for an
// empty digest.
//
func (d *Digest) Quantile(q float64) float64 {
	switch {
	case len(d.centroids) == 0:
		return math.NaN()
	case q <= 0:
		return d.min
	case q >= 1:
		return d.max
	}

	var (
		cs    = d.centroids
		first = cs[0]
		rank  = q * d.count
	)

	if rank < first.Weight/2 {
		return d.clamp(lerp(d.min, first.Mean, rank/(first.Weight/2)))
	}

	cum := 0.0
	for i := 0; i < len(cs)-1; i++ {
		left, right := cs[i], cs[i+1]

		leftCenter := cum + left.Weight/2
		rightCenter := cum + left.Weight + right.Weight/2

		if rank < rightCenter {
			frac := (rank - leftCenter) / (rightCenter - leftCenter)
			return d.clamp(lerp(left.Mean, right.Mean, frac))
		}

		cum += left.Weight
	}

	last := cs[len(cs)-1]
	lastCenter := cum + last.Weight/2

	return d.clamp(lerp(last.Mean, d.max, (rank-lastCenter)/(last.Weight/2)))
}

// QuantileAtValue estimates the fraction of observations smaller than v. It
// is the inverse of Quantile: v <= Min yields 0 and v >= Max yields 1. The
// result is NaN for an empty digest.
//
func (d *Digest) QuantileAtValue(v float64) float64 {
	switch {
	case len(d.centroids) == 0:
		return math.NaN()
	case v <= d.min:
		return 0
	case v >= d.max:
		return 1
	}

	var (
		cs    = d.centroids
		first = cs[0]
	)

	if v < first.Mean {
		rank := first.Weight / 2 * (v - d.min) / (first.Mean - d.min)
		return d.fraction(rank)
	}

	cum := 0.0
	for i := 0; i < len(cs)-1; i++ {
		left, right := cs[i], cs[i+1]

		if v < right.Mean {
			leftCenter := cum + left.Weight/2
			rightCenter := cum + left.Weight + right.Weight/2
			frac := (v - left.Mean) / (right.Mean - left.Mean)

			return d.fraction(lerp(leftCenter, rightCenter, frac))
		}

		cum += left.Weight
	}

	last := cs[len(cs)-1]
	lastCenter := cum + last.Weight/2
	rank := lastCenter + last.Weight/2*(v-last.Mean)/(d.max-last.Mean)

	return d.fraction(rank)
}

// Quantiles estimates the value at each of qs.
//
func (d *Digest) Quantiles(qs ...float64) map[float64]float64 {
	res := make(map[float64]float64, len(qs))
	for _, q := range qs {
		res[q] = d.Quantile(q)
	}

	return res
}

func (d *Digest) clamp(v float64) float64 {
	return math.Max(d.min, math.Min(v, d.max))
}

func (d *Digest) fraction(rank float64) float64 {
	return math.Max(0, math.Min(rank/d.count, 1))
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}
