package tdigest

import (
	"fmt"
	"math"
)

const (
	// DefaultCapacity is the capacity of the digest produced when merging
	// no digests at all.
	//
	DefaultCapacity = 100

	// MaxCapacity is the largest capacity the binary encoding can carry.
	//
	MaxCapacity = math.MaxUint32
)

// Digest is the compressed sketch: centroids ordered by mean together with
// the exact count, sum, min and max of every observation that went into it.
//
// A Digest is never modified once built; digestion and merging produce new
// ones.
//
type Digest struct {
	centroids []Centroid
	count     float64
	min       float64
	max       float64

	// sum is the total of the observations rounded to a float64; sumErr
	// is what rounding left out (see addSum).
	//
	sum    float64
	sumErr float64

	// capacity is the maximum number of centroids kept after digestion.
	// It is fixed for the lifetime of the sketch.
	//
	capacity int
}

// NewDigest creates an empty digest that keeps at most capacity centroids.
//
func NewDigest(capacity int) (*Digest, error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}

	return &Digest{capacity: capacity}, nil
}

func validateCapacity(capacity int) error {
	if capacity <= 0 || uint64(capacity) > MaxCapacity {
		return fmt.Errorf("capacity %d: %w", capacity, ErrInvalidCapacity)
	}

	return nil
}

// Capacity is the maximum number of centroids the digest keeps.
func (d *Digest) Capacity() int { return d.capacity }

// Len is the number of centroids currently held.
func (d *Digest) Len() int { return len(d.centroids) }

// Empty reports whether no observation has been digested.
func (d *Digest) Empty() bool { return d.count == 0 }

// Count is the number of observations digested.
func (d *Digest) Count() float64 { return d.count }

// Sum is the sum of every observation digested.
func (d *Digest) Sum() float64 { return d.sum }

// Min is the smallest observation digested, zero when empty.
func (d *Digest) Min() float64 { return d.min }

// Max is the largest observation digested, zero when empty.
func (d *Digest) Max() float64 { return d.max }

// Mean is the arithmetic mean of the observations, or 0 for an empty
// digest.
//
func (d *Digest) Mean() float64 {
	if d.count > 0 {
		return d.sum / d.count
	}

	return 0
}

// Centroids returns a copy of the centroids, ordered by mean.
//
func (d *Digest) Centroids() []Centroid {
	cs := make([]Centroid, len(d.centroids))
	copy(cs, d.centroids)

	return cs
}

// Clone returns a deep copy of d.
//
func (d *Digest) Clone() *Digest {
	c := *d
	c.centroids = d.Centroids()

	return &c
}

func (d *Digest) String() string {
	return fmt.Sprintf("digest{count=%g sum=%g min=%g max=%g centroids=%d/%d}",
		d.count, d.sum, d.min, d.max, len(d.centroids), d.capacity)
}
