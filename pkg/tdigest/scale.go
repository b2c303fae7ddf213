package tdigest

import "math"

// The scale function maps a quantile q in [0, 1] to a position k in
// [0, capacity]:
//
//	k(q) = capacity * (asin(2q - 1) + pi/2) / pi
//	q(k) = (sin(k * pi/capacity - pi/2) + 1) / 2
//
// A cluster is allowed to span at most one unit of k. The arcsine is steep
// close to q=0 and q=1 and flat around the median, so tail clusters stay
// small while the ones in the middle of the distribution grow large.

// integratedQ returns q(k), saturating at 0 and 1 outside [0, capacity].
//
func integratedQ(k float64, capacity int) float64 {
	c := float64(capacity)

	switch {
	case k <= 0:
		return 0
	case k >= c:
		return 1
	}

	return 0.5 * (math.Sin(k/c*math.Pi-math.Pi*0.5) + 1)
}

// integratedLocation returns k(q).
//
func integratedLocation(q float64, capacity int) float64 {
	q = math.Max(0, math.Min(q, 1))

	return float64(capacity) * (math.Asin(2*q-1) + math.Pi*0.5) / math.Pi
}
