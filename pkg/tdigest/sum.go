package tdigest

// Sums are carried as an unevaluated pair hi+lo, hi being the float64
// nearest to the pair. For the usual inputs the pair holds the exact sum of
// every observation, so the reported sum does not depend on the order values
// were pushed in nor on how states were grouped when merged.

// twoSum returns s = a+b rounded, and the rounding error e: a+b == s+e
// exactly.
//
func twoSum(a, b float64) (s, e float64) {
	s = a + b
	bv := s - a
	e = (a - (s - bv)) + (b - bv)

	return s, e
}

// addSum adds (hi2, lo2) to (hi, lo), returning a renormalized pair.
//
func addSum(hi, lo, hi2, lo2 float64) (float64, float64) {
	s, e := twoSum(hi, hi2)
	e += lo + lo2

	return twoSum(s, e)
}
