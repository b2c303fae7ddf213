package tdigest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skewedDigest(t *testing.T) *Digest {
	t.Helper()

	rng := rand.New(rand.NewSource(21))

	vs := make([]float64, 20000)
	for i := range vs {
		vs[i] = rng.ExpFloat64() * 10
	}

	return digestOf(t, 100, vs)
}

func TestQuantile_Boundaries(t *testing.T) {
	for name, d := range map[string]*Digest{
		"series": digestOf(t, 100, series(10000)),
		"skewed": skewedDigest(t),
		"tiny":   digestOf(t, 100, []float64{4, 2}),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, d.Min(), d.Quantile(0))
			assert.Equal(t, d.Max(), d.Quantile(1))
			assert.Equal(t, d.Min(), d.Quantile(-0.5))
			assert.Equal(t, d.Max(), d.Quantile(1.5))

			assert.Equal(t, 0.0, d.QuantileAtValue(d.Min()))
			assert.Equal(t, 1.0, d.QuantileAtValue(d.Max()))
			assert.Equal(t, 0.0, d.QuantileAtValue(d.Min()-1))
			assert.Equal(t, 1.0, d.QuantileAtValue(d.Max()+1))
		})
	}
}

func TestQuantile_SingleObservation(t *testing.T) {
	d := digestOf(t, 100, []float64{42})

	for _, q := range []float64{0, 0.3, 0.5, 1} {
		assert.Equal(t, 42.0, d.Quantile(q))
	}

	assert.Equal(t, 0.0, d.QuantileAtValue(42))
	assert.Equal(t, 1.0, d.QuantileAtValue(42.5))
}

func TestQuantile_Monotonic(t *testing.T) {
	d := skewedDigest(t)

	prev := d.Quantile(0)
	for q := 0.0005; q <= 1; q += 0.0005 {
		v := d.Quantile(q)
		require.GreaterOrEqual(t, v, prev, "q=%v", q)
		prev = v
	}

	prev = d.QuantileAtValue(d.Min())
	step := (d.Max() - d.Min()) / 5000
	for v := d.Min(); v <= d.Max(); v += step {
		q := d.QuantileAtValue(v)
		require.GreaterOrEqual(t, q, prev, "v=%v", v)
		prev = q
	}
}

func TestQuantile_InverseOfQuantileAtValue(t *testing.T) {
	d := skewedDigest(t)

	for q := 0.01; q < 1; q += 0.01 {
		assert.InDelta(t, q, d.QuantileAtValue(d.Quantile(q)), 1e-9, "q=%v", q)
	}
}

func TestQuantile_Continuity(t *testing.T) {
	d := skewedDigest(t)

	assert.InDelta(t, d.Min(), d.Quantile(1e-12), 1e-6)
	assert.InDelta(t, d.Max(), d.Quantile(1-1e-12), 1e-6)
}

func TestQuantile_TwoPoints(t *testing.T) {
	d := digestOf(t, 100, []float64{2, 4})

	// centres at ranks 0.5 and 1.5, anchored at (0, 2) and (2, 4).
	assert.Equal(t, 2.0, d.Quantile(0.25))
	assert.Equal(t, 3.0, d.Quantile(0.5))
	assert.Equal(t, 4.0, d.Quantile(0.75))
	assert.Equal(t, 0.5, d.QuantileAtValue(3))
}

func TestQuantile_Exponential(t *testing.T) {
	d := skewedDigest(t)

	// quantile function of an exponential distribution of mean 10.
	for _, tc := range []struct{ q, expected, pct float64 }{
		{0.5, 6.931, 0.05},
		{0.9, 23.026, 0.05},
		{0.99, 46.052, 0.1},
	} {
		pctEqual(t, tc.expected, d.Quantile(tc.q), tc.pct, "q=%v", tc.q)
	}
}

func TestQuantiles(t *testing.T) {
	d := digestOf(t, 100, series(10000))

	res := d.Quantiles(0, 0.5, 1)

	assert.Len(t, res, 3)
	assert.Equal(t, d.Min(), res[0])
	assert.Equal(t, d.Quantile(0.5), res[0.5])
	assert.Equal(t, d.Max(), res[1])
}
