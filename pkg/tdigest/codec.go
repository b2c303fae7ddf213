package tdigest

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encoded layout, little-endian:
//
//	[length u32]   size of the whole record, this field included
//	[capacity u32]
//	[count u32]
//	[sum f64][min f64][max f64]
//	[means f64 x k]
//	[weights u32 x k]    k = min(capacity, count)
//
// Digests holding fewer than k centroids pad the arrays with zeroes.
const headerSize = 4 + 4 + 4 + 8 + 8 + 8

var byteOrder = binary.LittleEndian

// slots returns k, the number of entries in each of the trailing arrays.
//
func slots(capacity, count uint32) int {
	if capacity < count {
		return int(capacity)
	}

	return int(count)
}

// EncodedLen is the number of bytes MarshalBinary produces for d.
//
func (d *Digest) EncodedLen() int {
	return headerSize + 12*slots(uint32(d.capacity), uint32(d.count))
}

// MarshalBinary implements encoding.BinaryMarshaler.
//
func (d *Digest) MarshalBinary() ([]byte, error) {
	return d.AppendBinary(nil)
}

// AppendBinary appends the encoding of d to dst.
//
func (d *Digest) AppendBinary(dst []byte) ([]byte, error) {
	if d.count > math.MaxUint32 {
		return nil, fmt.Errorf("count %g: %w", d.count, ErrCountOverflow)
	}

	var (
		capacity = uint32(d.capacity)
		count    = uint32(d.count)
		k        = slots(capacity, count)
		size     = headerSize + 12*k
	)

	if len(d.centroids) > k {
		return nil, fmt.Errorf("%d centroids for %d slots: %w",
			len(d.centroids), k, ErrCountOverflow)
	}

	buf := make([]byte, size)

	byteOrder.PutUint32(buf[0:], uint32(size))
	byteOrder.PutUint32(buf[4:], capacity)
	byteOrder.PutUint32(buf[8:], count)
	byteOrder.PutUint64(buf[12:], math.Float64bits(d.sum))
	byteOrder.PutUint64(buf[20:], math.Float64bits(d.min))
	byteOrder.PutUint64(buf[28:], math.Float64bits(d.max))

	means := buf[headerSize : headerSize+8*k]
	weights := buf[headerSize+8*k:]

	for i, c := range d.centroids {
		if c.Weight > math.MaxUint32 {
			return nil, fmt.Errorf("centroid %d weight %g: %w",
				i, c.Weight, ErrCountOverflow)
		}

		byteOrder.PutUint64(means[8*i:], math.Float64bits(c.Mean))
		byteOrder.PutUint32(weights[4*i:], uint32(c.Weight))
	}

	return append(dst, buf...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. d is left untouched
// when the buffer is not a valid encoding.
//
func (d *Digest) UnmarshalBinary(b []byte) error {
	decoded, err := decodeDigest(b)
	if err != nil {
		return err
	}

	*d = *decoded

	return nil
}

func decodeDigest(b []byte) (*Digest, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("%d bytes is shorter than the %d bytes header: %w",
			len(b), headerSize, ErrDecode)
	}

	size := byteOrder.Uint32(b[0:])
	if uint64(size) != uint64(len(b)) {
		return nil, fmt.Errorf("length prefix %d for %d bytes: %w",
			size, len(b), ErrDecode)
	}

	var (
		capacity = byteOrder.Uint32(b[4:])
		count    = byteOrder.Uint32(b[8:])
		k        = slots(capacity, count)
	)

	if capacity == 0 {
		return nil, fmt.Errorf("zero capacity: %w", ErrDecode)
	}

	if want := uint64(headerSize) + 12*uint64(k); want != uint64(len(b)) {
		return nil, fmt.Errorf("%d slots need %d bytes, got %d: %w",
			k, want, len(b), ErrDecode)
	}

	d := &Digest{
		capacity: int(capacity),
		count:    float64(count),
		sum:      math.Float64frombits(byteOrder.Uint64(b[12:])),
		min:      math.Float64frombits(byteOrder.Uint64(b[20:])),
		max:      math.Float64frombits(byteOrder.Uint64(b[28:])),
	}

	means := b[headerSize : headerSize+8*k]
	weights := b[headerSize+8*k:]

	var total uint64
	centroids := make([]Centroid, 0, k)

	for i := 0; i < k; i++ {
		mean := math.Float64frombits(byteOrder.Uint64(means[8*i:]))
		weight := byteOrder.Uint32(weights[4*i:])

		if weight == 0 {
			if err := checkPadding(means[8*i:], weights[4*i:]); err != nil {
				return nil, fmt.Errorf("slot %d: %w", i, err)
			}
			break
		}

		if math.IsNaN(mean) {
			return nil, fmt.Errorf("slot %d: NaN mean: %w", i, ErrDecode)
		}

		if n := len(centroids); n > 0 && mean < centroids[n-1].Mean {
			return nil, fmt.Errorf("slot %d: mean %g after %g: %w",
				i, mean, centroids[n-1].Mean, ErrDecode)
		}

		total += uint64(weight)
		centroids = append(centroids, Centroid{Mean: mean, Weight: float64(weight)})
	}

	if total != uint64(count) {
		return nil, fmt.Errorf("weights add up to %d, count is %d: %w",
			total, count, ErrDecode)
	}

	if len(centroids) > 0 {
		first, last := centroids[0], centroids[len(centroids)-1]
		if d.min > first.Mean || d.max < last.Mean {
			return nil, fmt.Errorf("min/max [%g, %g] don't cover means [%g, %g]: %w",
				d.min, d.max, first.Mean, last.Mean, ErrDecode)
		}

		d.centroids = centroids
	}

	return d, nil
}

// checkPadding verifies that the remaining slots, starting at the first
// zero weight, are all zeroed.
//
func checkPadding(means, weights []byte) error {
	for _, b := range means {
		if b != 0 {
			return fmt.Errorf("non-zero mean padding: %w", ErrDecode)
		}
	}

	for _, b := range weights {
		if b != 0 {
			return fmt.Errorf("non-zero weight padding: %w", ErrDecode)
		}
	}

	return nil
}

// Encode flushes s and returns the binary encoding of its digest. The pending
// buffer is never part of the encoding.
//
func Encode(s *State) ([]byte, error) {
	s.Flush()

	b, err := s.digested.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal digest: %w", err)
	}

	return b, nil
}

// Decode parses the output of Encode back into a state with an empty buffer.
//
func Decode(b []byte) (*State, error) {
	d, err := decodeDigest(b)
	if err != nil {
		return nil, err
	}

	return &State{digested: d}, nil
}
