package tdigest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// series returns n values evenly spaced by 0.01 starting at 0.01, the same
// as `generate_series(0.01, n/100, 0.01)`.
func series(n int) []float64 {
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = float64(i+1) / 100
	}

	return vs
}

func shuffled(vs []float64, seed int64) []float64 {
	out := append([]float64(nil), vs...)
	rand.New(rand.NewSource(seed)).Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	return out
}

func stateOf(t *testing.T, capacity int, vs []float64) *State {
	t.Helper()

	s, err := NewState(capacity)
	require.NoError(t, err)
	s.PushAll(vs)

	return s
}

func digestOf(t *testing.T, capacity int, vs []float64) *Digest {
	t.Helper()

	d := stateOf(t, capacity, vs).Finalize()
	require.NotNil(t, d)

	return d
}

func pctEqual(t *testing.T, expected, actual, pct float64, msgAndArgs ...interface{}) {
	t.Helper()
	require.InDelta(t, expected, actual, pct*expected, msgAndArgs...)
}
