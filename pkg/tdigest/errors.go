package tdigest

import "errors"

var (
	// ErrInvalidCapacity is returned when a digest is created with a
	// capacity that is not in the range [1, MaxCapacity].
	//
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrDecode is returned (wrapped with the reason) when a byte buffer
	// does not hold a well-formed encoded digest.
	//
	ErrDecode = errors.New("malformed digest encoding")

	// ErrCountOverflow is returned when a digest holds more observations
	// than the binary encoding is able to represent.
	//
	ErrCountOverflow = errors.New("count overflows encoding")
)
