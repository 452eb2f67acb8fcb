package convert

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/monitoring"
)

// fakeSource yields pre-built batches per path.
type fakeSource struct {
	batches map[string][]*calibration.RawBatch
	failOn  string
	err     error
	visited []string
}

func (f *fakeSource) Iterate(paths []string, fn func(*calibration.RawBatch) error) error {
	for _, p := range paths {
		f.visited = append(f.visited, p)
		if p == f.failOn {
			return f.err
		}
		for _, b := range f.batches[p] {
			if err := fn(b); err != nil {
				return err
			}
		}
	}
	return nil
}

func traces(n int, amp float64) [calibration.NumChannels]calibration.NestedTrace {
	var out [calibration.NumChannels]calibration.NestedTrace
	for c := range out {
		w := make([]float64, n)
		for i := range w {
			w[i] = amp
		}
		out[c] = calibration.NestedTrace{w}
	}
	return out
}

func batchOf(ids ...int64) *calibration.RawBatch {
	b := &calibration.RawBatch{}
	for _, id := range ids {
		n := calibration.TraceLength
		if id < 0 {
			n = 100
		}
		b.Append(id, 1700000000+id, traces(n, float64(id%100)))
	}
	return b
}

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func TestConvert_ConcatenatesInOrder(t *testing.T) {
	muteLogs(t)
	src := &fakeSource{batches: map[string][]*calibration.RawBatch{
		"a.root": {batchOf(1, -2, 3), batchOf(4)},
		"b.root": {batchOf(-5, -6)},
		"c.root": {batchOf(7, 8)},
	}}

	res, err := New(src).Convert([]string{"a.root", "b.root", "c.root"})
	require.NoError(t, err)

	var ids []int64
	for _, r := range res.Records {
		ids = append(ids, r.DUID)
	}
	assert.Equal(t, []int64{1, 3, 4, 7, 8}, ids)
	assert.Equal(t, 4, res.Batches)
	assert.Equal(t, calibration.Stats{Seen: 8, Kept: 5, BadLength: 3}, res.Stats)
}

func TestConvert_EmptyInput(t *testing.T) {
	muteLogs(t)
	src := &fakeSource{}

	records, err := Convert(src, nil)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Empty(t, src.visited, "source should not be touched for an empty list")
}

func TestConvert_AllBadBatches(t *testing.T) {
	muteLogs(t)
	src := &fakeSource{batches: map[string][]*calibration.RawBatch{
		"a.root": {batchOf(-1), batchOf(-2, -3)},
	}}

	records, err := Convert(src, []string{"a.root"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConvert_PropagatesReadError(t *testing.T) {
	muteLogs(t)
	readErr := errors.New("corrupt file")
	src := &fakeSource{
		batches: map[string][]*calibration.RawBatch{"a.root": {batchOf(1)}},
		failOn:  "b.root",
		err:     readErr,
	}

	records, err := Convert(src, []string{"a.root", "b.root", "c.root"})
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)
	assert.Nil(t, records)
	assert.Equal(t, []string{"a.root", "b.root"}, src.visited)
}

func TestConvert_MalformedBatch(t *testing.T) {
	muteLogs(t)
	bad := &calibration.RawBatch{DUID: []int64{1}}
	src := &fakeSource{batches: map[string][]*calibration.RawBatch{"a.root": {bad}}}

	_, err := Convert(src, []string{"a.root"})
	assert.ErrorIs(t, err, calibration.ErrColumnMismatch)
}
