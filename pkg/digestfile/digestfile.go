// Package digestfile stores encoded tdigest states, optionally compressed
// with zstd.
//
// The raw encoding can't be mistaken for a zstd frame: a record starting with
// the zstd magic number would declare a length of more than 4GB.
//
package digestfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/cirocosta/tdigest/pkg/tdigest"
)

// maxDecodedSize bounds how much memory decompressing a file may take.
const maxDecodedSize = 1 << 30

// DefaultMaxCapacity is the largest digest capacity Read accepts unless
// overridden with WithMaxCapacity. A state buffers up to capacity values
// before digesting them, so files are not trusted with arbitrary ones.
const DefaultMaxCapacity = 1 << 16

// ErrCapacityTooLarge is returned by Read for digests whose capacity exceeds
// the configured maximum.
var ErrCapacityTooLarge = errors.New("digest capacity too large")

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type options struct {
	compress    bool
	maxCapacity int
}

func newOptions(opts []Option) options {
	o := options{maxCapacity: DefaultMaxCapacity}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Option configures how a state gets written or read.
//
type Option func(o *options)

// WithCompression wraps the encoded state in a zstd frame.
//
func WithCompression(v bool) Option {
	return func(o *options) {
		o.compress = v
	}
}

// WithMaxCapacity overrides DefaultMaxCapacity when reading.
//
func WithMaxCapacity(v int) Option {
	return func(o *options) {
		o.maxCapacity = v
	}
}

// Write encodes s (flushing it) into w.
//
func Write(w io.Writer, s *tdigest.State, opts ...Option) error {
	o := newOptions(opts)

	b, err := tdigest.Encode(s)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	if !o.compress {
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("write: %w", err)
		}

		return nil
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd new writer: %w", err)
	}

	if _, err := enc.Write(b); err != nil {
		_ = enc.Close()
		return fmt.Errorf("zstd write: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}

	return nil
}

// Read decodes a state previously written with Write, compressed or not.
//
func Read(r io.Reader, opts ...Option) (*tdigest.State, error) {
	o := newOptions(opts)

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read all: %w", err)
	}

	if bytes.HasPrefix(b, zstdMagic) {
		b, err = decompress(b)
		if err != nil {
			return nil, err
		}
	}

	s, err := tdigest.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if s.Capacity() > o.maxCapacity {
		return nil, fmt.Errorf("capacity %d over %d: %w",
			s.Capacity(), o.maxCapacity, ErrCapacityTooLarge)
	}

	return s, nil
}

func decompress(b []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd new reader: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}

	return out, nil
}

// WriteFile writes s to the file at path, replacing it if it exists.
//
func WriteFile(path string, s *tdigest.State, opts ...Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create '%s': %w", path, err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close '%s': %w", path, cerr)
		}
	}()

	if err := Write(f, s, opts...); err != nil {
		return fmt.Errorf("write '%s': %w", path, err)
	}

	return nil
}

// ReadFile reads the state stored at path.
//
func ReadFile(path string, opts ...Option) (*tdigest.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open '%s': %w", path, err)
	}
	defer f.Close()

	s, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("read '%s': %w", path, err)
	}

	return s, nil
}
