package tdigest

import (
	"math"
	"sort"
)

// MergeUnsorted returns a new digest made of d's centroids together with
// values, in any order. Neither d nor values are modified.
//
func (d *Digest) MergeUnsorted(values []float64) *Digest {
	if len(values) == 0 {
		return d.Clone()
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return d.MergeSorted(sorted)
}

// MergeSorted is like MergeUnsorted but requires values to be in ascending
// order.
//
func (d *Digest) MergeSorted(values []float64) *Digest {
	if len(values) == 0 {
		return d.Clone()
	}

	out := &Digest{
		capacity: d.capacity,
		sum:      d.sum,
		sumErr:   d.sumErr,
		count:    d.count,
		min:      d.min,
		max:      d.max,
	}

	for _, v := range values {
		out.sum, out.sumErr = addSum(out.sum, out.sumErr, v, 0)
	}

	lo, hi := values[0], values[len(values)-1]
	if d.count == 0 || lo < out.min {
		out.min = lo
	}
	if d.count == 0 || hi > out.max {
		out.max = hi
	}

	out.count += float64(len(values))
	out.centroids = compress(interleave(d.centroids, values), out.count, d.capacity)

	return out
}

// interleave merges the centroids and the raw values (each a centroid of
// weight 1) into a single sequence ordered by mean. On ties, existing
// centroids come first.
//
func interleave(centroids []Centroid, values []float64) []Centroid {
	points := make([]Centroid, 0, len(centroids)+len(values))

	i, j := 0, 0
	for i < len(centroids) && j < len(values) {
		if centroids[i].Mean <= values[j] {
			points = append(points, centroids[i])
			i++
			continue
		}

		points = append(points, Centroid{Mean: values[j], Weight: 1})
		j++
	}

	points = append(points, centroids[i:]...)
	for ; j < len(values); j++ {
		points = append(points, Centroid{Mean: values[j], Weight: 1})
	}

	return points
}

// compress clusters points, ordered by mean and weighing total altogether,
// into at most capacity centroids.
//
// Points are walked left to right. The current cluster keeps absorbing the
// next point for as long as the cumulative weight stays under q(k)*total,
// where k is the integral scale position the cluster was opened at. Closing
// a cluster moves k past the position of everything consumed so far, so
// there can't be more than capacity clusters: once k reaches capacity the
// limit is unbounded and the last cluster takes the tail.
//
func compress(points []Centroid, total float64, capacity int) []Centroid {
	points = collapseEqual(points)
	if len(points) <= capacity {
		return points
	}

	out := make([]Centroid, 0, capacity)

	k := 1.0
	limit := clusterLimit(k, total, capacity)

	current := points[0]
	soFar := current.Weight

	for _, p := range points[1:] {
		if soFar+p.Weight <= limit {
			current = current.merge(p)
			soFar += p.Weight
			continue
		}

		out = append(out, current)

		k = math.Max(k+1, math.Floor(integratedLocation(soFar/total, capacity))+1)
		limit = clusterLimit(k, total, capacity)

		current = p
		soFar += p.Weight
	}

	return append(out, current)
}

func clusterLimit(k, total float64, capacity int) float64 {
	if k >= float64(capacity) {
		return math.Inf(1)
	}

	return total * integratedQ(k, capacity)
}

// collapseEqual folds together adjacent points sharing the same mean. No
// information is lost by doing so. The returned slice may share its backing
// array with points.
//
func collapseEqual(points []Centroid) []Centroid {
	if len(points) < 2 {
		return points
	}

	out := points[:1]
	for _, p := range points[1:] {
		last := &out[len(out)-1]
		if p.Mean == last.Mean {
			last.Weight += p.Weight
			continue
		}

		out = append(out, p)
	}

	return out
}
