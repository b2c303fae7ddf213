// Package tdigest implements a mergeable, bounded-memory sketch of a stream of
// float64 observations from which approximate quantiles can be estimated.
//
// Observations are pushed into a State, which buffers them and periodically
// digests the buffer into a Digest: an ordered list of weighted centroids plus
// exact count, sum, min and max. States built independently (one per
// partition, worker or group) are combined with Merge, and a State can be
// shipped across process boundaries with Encode and Decode.
//
//	s, _ := tdigest.NewState(100)
//	for _, v := range values {
//		s.Push(v)
//	}
//	d := s.Finalize()
//	p99 := d.Quantile(0.99)
//
// Nothing in this package is safe for concurrent use: a State or a Digest
// must be owned by a single goroutine while it is being mutated. Merge and
// the digestion methods never modify their inputs, so read-only copies held
// elsewhere stay valid.
//
package tdigest
