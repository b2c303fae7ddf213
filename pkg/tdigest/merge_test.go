package tdigest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDigests_NoDigests(t *testing.T) {
	d := MergeDigests()

	assert.True(t, d.Empty())
	assert.Equal(t, DefaultCapacity, d.Capacity())

	d = MergeDigests(nil, nil)
	assert.True(t, d.Empty())
	assert.Equal(t, DefaultCapacity, d.Capacity())
}

func TestMergeDigests_Single(t *testing.T) {
	d := digestOf(t, 30, series(1000))

	got := MergeDigests(nil, d)

	assert.NotSame(t, d, got)
	assert.Equal(t, d.Centroids(), got.Centroids())
	assert.Equal(t, d.Count(), got.Count())
	assert.Equal(t, d.Sum(), got.Sum())
	assert.Equal(t, d.Min(), got.Min())
	assert.Equal(t, d.Max(), got.Max())
}

func TestMergeDigests_LargestCapacityWins(t *testing.T) {
	a := digestOf(t, 20, series(1000))
	b := digestOf(t, 200, series(1000))

	assert.Equal(t, 200, MergeDigests(a, b).Capacity())
	assert.Equal(t, 200, MergeDigests(b, a).Capacity())
}

func TestMergeDigests_SkipsEmpty(t *testing.T) {
	empty, err := NewDigest(10)
	require.NoError(t, err)

	d := digestOf(t, 10, []float64{-5, 5})
	got := MergeDigests(empty, d)

	assert.Equal(t, -5.0, got.Min())
	assert.Equal(t, 5.0, got.Max())
	assert.Equal(t, 2.0, got.Count())
}

func TestMergeDigests_DoesNotModifyInputs(t *testing.T) {
	a := digestOf(t, 10, series(500))
	b := digestOf(t, 10, shuffled(series(500), 9))

	before := append(a.Centroids(), b.Centroids()...)

	MergeDigests(a, b)

	assert.Equal(t, before, append(a.Centroids(), b.Centroids()...))
}

func TestMergeDigests_Deterministic(t *testing.T) {
	a := digestOf(t, 50, shuffled(series(3000), 1))
	b := digestOf(t, 50, shuffled(series(3000), 2))

	assert.Equal(t, MergeDigests(a, b).Centroids(), MergeDigests(a, b).Centroids())
}

func TestMergeDigests_DisjointHalves(t *testing.T) {
	values := series(10000)

	single := digestOf(t, 100, values)

	lower := stateOf(t, 100, values[:5000])
	upper := stateOf(t, 100, values[5000:])

	merged := Merge(lower, upper).Finalize()
	require.NotNil(t, merged)

	assert.Equal(t, single.Count(), merged.Count())
	assert.Equal(t, single.Min(), merged.Min())
	assert.Equal(t, single.Max(), merged.Max())
	assert.Equal(t, single.Sum(), merged.Sum())
	assert.LessOrEqual(t, merged.Len(), merged.Capacity())

	pctEqual(t, single.Quantile(0.5), merged.Quantile(0.5), 0.01)
	pctEqual(t, 50.0, merged.Quantile(0.5), 0.01)
}

// decimalValues returns n normally distributed values rounded to two
// decimals.
func decimalValues(rng *rand.Rand, n int, scale float64) []float64 {
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = float64(int64(rng.NormFloat64()*scale*100)) / 100
	}

	return vs
}

func TestMerge_AssociativeCommutative(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	a := stateOf(t, 100, decimalValues(rng, 4000, 100))
	b := stateOf(t, 100, decimalValues(rng, 7000, 300))
	c := stateOf(t, 100, decimalValues(rng, 2500, 50))

	digests := []*Digest{
		Merge(Merge(a, b), c).Finalize(),
		Merge(a, Merge(b, c)).Finalize(),
		Merge(Merge(a, c), b).Finalize(),
		Merge(c, Merge(b, a)).Finalize(),
	}

	reference := digests[0]
	require.NotNil(t, reference)

	for _, d := range digests[1:] {
		require.NotNil(t, d)

		assert.Equal(t, reference.Count(), d.Count())
		assert.Equal(t, reference.Sum(), d.Sum())
		assert.Equal(t, reference.Min(), d.Min())
		assert.Equal(t, reference.Max(), d.Max())
		assert.LessOrEqual(t, d.Len(), d.Capacity())

		spread := reference.Max() - reference.Min()
		for q := 0.05; q < 1; q += 0.05 {
			assert.InDelta(t, reference.Quantile(q), d.Quantile(q), 0.01*spread, "q=%v", q)
		}
	}
}

func TestMerge_SumDoesNotDependOnGrouping(t *testing.T) {
	a := stateOf(t, 10, []float64{0.1})
	b := stateOf(t, 10, []float64{0.2})
	c := stateOf(t, 10, []float64{1.0})

	left := Merge(Merge(a, b), c).Finalize()
	right := Merge(a, Merge(b, c)).Finalize()
	swapped := Merge(Merge(a, c), b).Finalize()

	assert.Equal(t, left.Sum(), right.Sum())
	assert.Equal(t, left.Sum(), swapped.Sum())
}

func TestMerge_ManyPartitions(t *testing.T) {
	values := shuffled(series(20000), 5)

	var acc *State
	for i := 0; i < 40; i++ {
		part := stateOf(t, 100, values[i*500:(i+1)*500])
		acc = Merge(acc, part)

		assert.LessOrEqual(t, acc.digested.Len(), 100)
	}

	d := acc.Finalize()
	require.NotNil(t, d)

	assert.Equal(t, 20000.0, d.Count())
	assert.Equal(t, 0.01, d.Min())
	assert.Equal(t, 200.0, d.Max())
	assert.InDelta(t, 100.0, d.Quantile(0.5), 2.0)
	assert.InDelta(t, 0.25, d.QuantileAtValue(50), 0.01)
}
