package tdigest

import "sort"

// MergeDigests combines digests into a single one without going back to the
// original observations. The result keeps as many centroids as the largest
// capacity among the inputs; merging no digest yields an empty one of
// DefaultCapacity. Nil digests are ignored and inputs are left untouched.
//
// The centroids of every input are ordered by mean, ties keeping the order in
// which digests were passed, so that merging the same inputs always produces
// the same output.
//
func MergeDigests(digests ...*Digest) *Digest {
	var (
		out   = &Digest{}
		n     = 0
		parts = 0
	)

	for _, d := range digests {
		if d == nil {
			continue
		}

		parts++
		n += len(d.centroids)

		if d.capacity > out.capacity {
			out.capacity = d.capacity
		}
	}

	switch parts {
	case 0:
		out.capacity = DefaultCapacity
		return out
	case 1:
		for _, d := range digests {
			if d != nil {
				return d.Clone()
			}
		}
	}

	points := make([]Centroid, 0, n)

	for _, d := range digests {
		if d == nil || d.count == 0 {
			continue
		}

		if out.count == 0 || d.min < out.min {
			out.min = d.min
		}
		if out.count == 0 || d.max > out.max {
			out.max = d.max
		}

		out.count += d.count
		out.sum, out.sumErr = addSum(out.sum, out.sumErr, d.sum, d.sumErr)
		points = append(points, d.centroids...)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Mean < points[j].Mean
	})

	out.centroids = compress(points, out.count, out.capacity)

	return out
}
