package rootio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/banshee-data/calibration.report/internal/calibration"
)

func TestToInt64(t *testing.T) {
	u16 := []uint16{1080}
	u32 := uint32(1700000000)
	f := []float64{12.9}
	empty := []uint16{}

	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"vector of uint16", &u16, 1080},
		{"scalar uint32", &u32, 1700000000},
		{"vector of float truncates", &f, 12},
		{"empty vector reads as zero", &empty, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toInt64(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("string is rejected", func(t *testing.T) {
		s := "du80"
		_, err := toInt64(&s)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
	t.Run("nil is rejected", func(t *testing.T) {
		_, err := toInt64(nil)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}

func TestToNestedTrace(t *testing.T) {
	in := [][]int16{{1, -2, 3}, {9}}
	got, err := toNestedTrace(&in)
	require.NoError(t, err)
	assert.Equal(t, calibration.NestedTrace{{1, -2, 3}, {9}}, got)
	assert.Equal(t, []float64{1, -2, 3}, got.Waveform())

	// the copy must not alias the reader's buffer
	in[0][0] = 100
	assert.Equal(t, 1.0, got[0][0])
}

func TestToNestedTrace_Empty(t *testing.T) {
	in := [][]float32{}
	got, err := toNestedTrace(&in)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, got.Waveform())
}

func TestToNestedTrace_RejectsFlat(t *testing.T) {
	in := []int16{1, 2, 3}
	_, err := toNestedTrace(&in)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestEventValues(t *testing.T) {
	duID := []uint16{1080}
	duSeconds := []uint32{1700000000}
	trace := [][]int16{{1, 2}}
	vars := []rtree.ReadVar{
		{Name: calibration.FieldDUID, Value: &duID},
		{Name: calibration.FieldDUSeconds, Value: &duSeconds},
	}
	for c := 0; c < calibration.NumChannels; c++ {
		vars = append(vars, rtree.ReadVar{Name: calibration.TraceField(c), Value: &trace})
	}

	id, secs, traces, err := newEventValues(vars).event()
	require.NoError(t, err)
	assert.Equal(t, int64(1080), id)
	assert.Equal(t, int64(1700000000), secs)
	for c := range traces {
		assert.Equal(t, []float64{1, 2}, traces[c].Waveform())
	}
}
