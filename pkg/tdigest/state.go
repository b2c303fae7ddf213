package tdigest

// State is the accumulator observations are pushed into: a buffer of pending
// values in front of a Digest. The buffer is digested every time it reaches
// the digest's capacity, so pushing is amortized O(1).
//
// A State is owned by a single goroutine while being pushed into.
//
type State struct {
	buffer   []float64
	digested *Digest
}

// NewState creates an empty state whose digest keeps at most capacity
// centroids.
//
func NewState(capacity int) (*State, error) {
	d, err := NewDigest(capacity)
	if err != nil {
		return nil, err
	}

	return &State{digested: d}, nil
}

// Push records an observation. Values are expected to be finite: filtering
// out NaN and infinities is up to the caller.
//
func (s *State) Push(v float64) {
	s.buffer = append(s.buffer, v)

	if len(s.buffer) >= s.digested.capacity {
		s.Flush()
	}
}

// PushAll records every value in vs.
//
func (s *State) PushAll(vs []float64) {
	for _, v := range vs {
		s.Push(v)
	}
}

// Flush digests the pending buffer, if any.
//
func (s *State) Flush() {
	if len(s.buffer) == 0 {
		return
	}

	s.digested = s.digested.MergeUnsorted(s.buffer)
	s.buffer = nil
}

// Pending is the number of observations waiting to be digested.
//
func (s *State) Pending() int { return len(s.buffer) }

// Count is the number of observations pushed so far, digested or not.
//
func (s *State) Count() float64 {
	return s.digested.count + float64(len(s.buffer))
}

// Capacity is the capacity of the underlying digest.
//
func (s *State) Capacity() int { return s.digested.capacity }

// Digest returns the digest made of everything pushed so far, without
// flushing s.
//
func (s *State) Digest() *Digest {
	return s.digested.MergeUnsorted(s.buffer)
}

// Clone returns a deep copy of s.
//
func (s *State) Clone() *State {
	c := &State{digested: s.digested.Clone()}
	if len(s.buffer) > 0 {
		c.buffer = append([]float64(nil), s.buffer...)
	}

	return c
}

// Finalize flushes s and hands out its digest. A state that never saw an
// observation has no sketch to offer: nil is returned in that case.
//
// s must not be pushed into after being finalized.
//
func (s *State) Finalize() *Digest {
	s.Flush()

	if s.digested.count == 0 {
		return nil
	}

	return s.digested
}

// Merge combines two states into a new one with an empty buffer. Empty (or
// nil) states are the identity: merging one with x yields a copy of x.
// Neither a nor b is modified.
//
func Merge(a, b *State) *State {
	switch {
	case isEmpty(a) && isEmpty(b):
		if a != nil {
			return a.Clone()
		}
		if b != nil {
			return b.Clone()
		}
		return nil
	case isEmpty(a):
		return b.Clone()
	case isEmpty(b):
		return a.Clone()
	}

	return &State{
		digested: MergeDigests(a.Digest(), b.Digest()),
	}
}

func isEmpty(s *State) bool {
	return s == nil || s.Count() == 0
}
