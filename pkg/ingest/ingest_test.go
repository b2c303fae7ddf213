package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReader(t *testing.T, opts ...Option) *Reader {
	t.Helper()

	r, err := New(100, append([]Option{WithLogger(logr.Discard())}, opts...)...)
	require.NoError(t, err)

	return r
}

func source(name string, lines ...string) Source {
	return Source{Name: name, Reader: strings.NewReader(strings.Join(lines, "\n"))}
}

func TestNew_InvalidCapacity(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestParseLine(t *testing.T) {
	for _, tc := range []struct {
		line     string
		expected float64
		ok       bool
		err      bool
	}{
		{line: "1.5", expected: 1.5, ok: true},
		{line: "  -3e2 ", expected: -300, ok: true},
		{line: ""},
		{line: "   "},
		{line: "# a comment"},
		{line: "abc", err: true},
		{line: "1,5", err: true},
	} {
		t.Run(tc.line, func(t *testing.T) {
			v, ok, err := ParseLine(tc.line)
			if tc.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, v)
		})
	}
}

func TestReadState(t *testing.T) {
	r := newReader(t)

	state, stats, err := r.ReadState(context.Background(), source("test",
		"# header",
		"1",
		"2",
		"",
		"NaN",
		"+Inf",
		"3",
	))
	require.NoError(t, err)

	assert.Equal(t, Stats{Lines: 7, Observations: 3, Skipped: 2}, stats)

	d := state.Finalize()
	require.NotNil(t, d)
	assert.Equal(t, 3.0, d.Count())
	assert.Equal(t, 6.0, d.Sum())
}

func TestReadState_InvalidLine(t *testing.T) {
	r := newReader(t)

	_, _, err := r.ReadState(context.Background(), source("test", "1", "oops"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test:2")
}

func TestReadState_Lenient(t *testing.T) {
	r := newReader(t, WithLenient(true))

	state, stats, err := r.ReadState(context.Background(), source("test", "1", "oops", "2"))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2.0, state.Count())
}

func TestReadState_Cancelled(t *testing.T) {
	r := newReader(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.ReadState(ctx, source("test", "1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadAll(t *testing.T) {
	r := newReader(t)

	var srcs []Source
	for i := 0; i < 4; i++ {
		lines := make([]string, 0, 2500)
		for j := 1; j <= 2500; j++ {
			lines = append(lines, fmt.Sprintf("%d", i*2500+j))
		}

		srcs = append(srcs, source(fmt.Sprintf("part-%d", i), lines...))
	}

	state, stats, err := r.ReadAll(context.Background(), srcs...)
	require.NoError(t, err)

	assert.Equal(t, 10000, stats.Observations)

	d := state.Finalize()
	require.NotNil(t, d)

	assert.Equal(t, 10000.0, d.Count())
	assert.Equal(t, 1.0, d.Min())
	assert.Equal(t, 10000.0, d.Max())
	assert.Equal(t, 50005000.0, d.Sum())
	assert.InDelta(t, 5000.0, d.Quantile(0.5), 50)
}

func TestReadAll_NoSources(t *testing.T) {
	r := newReader(t)

	state, _, err := r.ReadAll(context.Background())
	require.NoError(t, err)

	assert.Zero(t, state.Count())
	assert.Equal(t, 100, state.Capacity())
}

func TestReadAll_FailingSource(t *testing.T) {
	r := newReader(t)

	_, _, err := r.ReadAll(context.Background(),
		source("good", "1", "2"),
		source("bad", "x"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad:1")
}

func TestReadState_CancelledWhileWaitingForInput(t *testing.T) {
	r := newReader(t)

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, _, err := r.ReadState(ctx, Source{Name: "idle", Reader: pr})
		errc <- err
	}()

	_, err := pw.Write([]byte("1\n"))
	require.NoError(t, err)

	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("read did not return after its context got cancelled")
	}
}

func TestScan(t *testing.T) {
	var got []string

	err := Scan(context.Background(), strings.NewReader("a\nb\n\nc"), func(n int, line string) error {
		got = append(got, fmt.Sprintf("%d:%s", n, line))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1:a", "2:b", "3:", "4:c"}, got)
}

func TestScan_StopsOnError(t *testing.T) {
	calls := 0

	err := Scan(context.Background(), strings.NewReader("a\nb\nc"), func(n int, line string) error {
		calls++
		if n == 2 {
			return fmt.Errorf("line %d", n)
		}

		return nil
	})

	assert.EqualError(t, err, "line 2")
	assert.Equal(t, 2, calls)
}
