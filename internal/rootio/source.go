// Package rootio streams calibration trigger batches out of ROOT files using
// go-hep's groot reader.
package rootio

import (
	"errors"
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/monitoring"
)

// DefaultBatchSize is the number of events per yielded batch when none is set.
const DefaultBatchSize = 1000

var (
	// ErrTreeNotFound is returned when a file lacks the event table and
	// missing tables are not allowed.
	ErrTreeNotFound = errors.New("rootio: event tree not found")
	// ErrMissingField is returned when the event table lacks a requested field.
	ErrMissingField = errors.New("rootio: field not found in event tree")
)

// Options configures a Source.
type Options struct {
	// TreeName is the event table read from each file.
	TreeName string
	// BatchSize caps the number of events per batch. Batches never span files.
	BatchSize int
	// AllowMissing skips files that do not contain TreeName instead of failing.
	AllowMissing bool
}

// DefaultOptions reads calibration.TreeName in batches of DefaultBatchSize,
// skipping files without the table.
func DefaultOptions() Options {
	return Options{
		TreeName:     calibration.TreeName,
		BatchSize:    DefaultBatchSize,
		AllowMissing: true,
	}
}

// Source reads the calibration fields from a list of ROOT files.
type Source struct {
	opts Options
}

// NewSource returns a Source. Zero-valued TreeName and BatchSize fall back to
// the defaults.
func NewSource(opts Options) *Source {
	if opts.TreeName == "" {
		opts.TreeName = calibration.TreeName
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Source{opts: opts}
}

// Options returns the effective options.
func (s *Source) Options() Options {
	return s.opts
}

// Iterate reads every file in order and calls fn once per batch. Files
// without the event table are skipped when AllowMissing is set; any other
// open or read failure aborts the iteration.
func (s *Source) Iterate(paths []string, fn func(batch *calibration.RawBatch) error) error {
	for _, path := range paths {
		if err := s.iterateFile(path, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) iterateFile(path string, fn func(batch *calibration.RawBatch) error) error {
	f, err := groot.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	tree, err := s.lookupTree(f)
	if err != nil {
		if errors.Is(err, ErrTreeNotFound) && s.opts.AllowMissing {
			monitoring.Debugf("skipping %s: no %q tree", path, s.opts.TreeName)
			return nil
		}
		return fmt.Errorf("%s: %w", path, err)
	}

	vars, err := selectReadVars(tree, calibration.Fields())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	vals := newEventValues(vars)

	r, err := rtree.NewReader(tree, vars)
	if err != nil {
		return fmt.Errorf("failed to create tree reader for %s: %w", path, err)
	}
	defer r.Close()

	b := newBatcher(s.opts.BatchSize, fn)
	err = r.Read(func(ctx rtree.RCtx) error {
		duID, duSeconds, traces, err := vals.event()
		if err != nil {
			return fmt.Errorf("entry %d: %w", ctx.Entry, err)
		}
		return b.add(duID, duSeconds, traces)
	})
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := b.flush(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Debugf("read %d entries from %s", tree.Entries(), path)
	return nil
}

// batcher collects entries into batches of at most size events and hands
// each full batch to fn. The trailing partial batch is handed off by flush.
type batcher struct {
	size  int
	fn    func(batch *calibration.RawBatch) error
	batch *calibration.RawBatch
}

func newBatcher(size int, fn func(batch *calibration.RawBatch) error) *batcher {
	return &batcher{size: size, fn: fn, batch: &calibration.RawBatch{}}
}

func (b *batcher) add(duID, duSeconds int64, traces [calibration.NumChannels]calibration.NestedTrace) error {
	b.batch.Append(duID, duSeconds, traces)
	if b.batch.Len() < b.size {
		return nil
	}
	return b.flush()
}

// flush hands off the pending events, if any, and starts a new batch.
func (b *batcher) flush() error {
	if b.batch.Len() == 0 {
		return nil
	}
	batch := b.batch
	b.batch = &calibration.RawBatch{}
	return b.fn(batch)
}

// lookupTree finds the event table among the top-level keys of f.
func (s *Source) lookupTree(f *riofs.File) (rtree.Tree, error) {
	found := false
	for _, k := range f.Keys() {
		if k.Name() == s.opts.TreeName {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrTreeNotFound, s.opts.TreeName)
	}

	obj, err := f.Get(s.opts.TreeName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", s.opts.TreeName, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		return nil, fmt.Errorf("object %q is a %s, not a tree", s.opts.TreeName, obj.Class())
	}
	return tree, nil
}

// selectReadVars returns the read variables for names, in the order given.
func selectReadVars(tree rtree.Tree, names []string) ([]rtree.ReadVar, error) {
	all := rtree.NewReadVars(tree)
	byName := make(map[string]rtree.ReadVar, len(all))
	for _, rv := range all {
		if _, dup := byName[rv.Name]; !dup {
			byName[rv.Name] = rv
		}
	}

	vars := make([]rtree.ReadVar, 0, len(names))
	for _, name := range names {
		rv, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingField, name)
		}
		vars = append(vars, rv)
	}
	return vars, nil
}
