package rootio

import (
	"errors"
	"fmt"
	"reflect"

	"go-hep.org/x/hep/groot/rtree"

	"github.com/banshee-data/calibration.report/internal/calibration"
)

// ErrUnsupportedType is returned when a branch holds a Go type that cannot be
// converted to the calibration fields.
var ErrUnsupportedType = errors.New("rootio: unsupported branch type")

// eventValues holds the read destinations for one entry, in
// calibration.Fields() order: du_id, du_seconds, trace_0..trace_3.
type eventValues struct {
	duID      any
	duSeconds any
	traces    [calibration.NumChannels]any
}

func newEventValues(vars []rtree.ReadVar) *eventValues {
	v := &eventValues{
		duID:      vars[0].Value,
		duSeconds: vars[1].Value,
	}
	for c := 0; c < calibration.NumChannels; c++ {
		v.traces[c] = vars[2+c].Value
	}
	return v
}

// event copies the current entry out of the reader's buffers.
func (v *eventValues) event() (duID, duSeconds int64, traces [calibration.NumChannels]calibration.NestedTrace, err error) {
	if duID, err = toInt64(v.duID); err != nil {
		return 0, 0, traces, fmt.Errorf("%s: %w", calibration.FieldDUID, err)
	}
	if duSeconds, err = toInt64(v.duSeconds); err != nil {
		return 0, 0, traces, fmt.Errorf("%s: %w", calibration.FieldDUSeconds, err)
	}
	for c := 0; c < calibration.NumChannels; c++ {
		if traces[c], err = toNestedTrace(v.traces[c]); err != nil {
			return 0, 0, traces, fmt.Errorf("%s: %w", calibration.TraceField(c), err)
		}
	}
	return duID, duSeconds, traces, nil
}

// toInt64 converts an integer-like branch value. Calibration entries hold one
// detector unit, so a per-entry vector contributes its first element; an
// empty vector reads as 0 and the event is left to the trace quality gate.
func toInt64(v any) (int64, error) {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return 0, fmt.Errorf("%w: nil value", ErrUnsupportedType)
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return 0, nil
		}
		rv = rv.Index(0)
	}
	return scalarInt64(rv)
}

func scalarInt64(rv reflect.Value) (int64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
	}
}

func scalarFloat64(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
	}
}

func isList(rv reflect.Value) bool {
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

// toNestedTrace copies a vector<vector<T>> branch value into a NestedTrace.
// A flat vector is rejected: the event table always wraps the waveform.
func toNestedTrace(v any) (calibration.NestedTrace, error) {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if !rv.IsValid() || !isList(rv) {
		return nil, fmt.Errorf("%w: want nested vector, got %T", ErrUnsupportedType, v)
	}
	if rv.Len() > 0 && !isList(rv.Index(0)) {
		return nil, fmt.Errorf("%w: want nested vector, got %s", ErrUnsupportedType, rv.Type())
	}

	out := make(calibration.NestedTrace, rv.Len())
	for i := range out {
		inner := rv.Index(i)
		w := make([]float64, inner.Len())
		for j := range w {
			x, err := scalarFloat64(inner.Index(j))
			if err != nil {
				return nil, err
			}
			w[j] = x
		}
		out[i] = w
	}
	return out, nil
}
