package datamanager

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/ojpb/relational/dataset"
)

var (
	// ErrNotUnlabelled is returned when an index outside the unlabelled
	// pool is submitted for labelling.
	ErrNotUnlabelled = errors.New("index is not in the unlabelled pool")

	// ErrNotAnnotatable is returned when Annotate is called on a dataset
	// that does not support label writes.
	ErrNotAnnotatable = errors.New("dataset does not support label writes")
)

// Options configures a Manager.
type Options struct {
	// TrainIndices, ValidationIndices, and TestIndices are the dataset
	// splits. TrainIndices defaults to the whole dataset.
	TrainIndices      []int
	ValidationIndices []int
	TestIndices       []int

	// LabelledIndices is the initial labelled subset of the train split.
	LabelledIndices []int

	// TopUnlabelled is the optional ground-truth top-informative set used
	// for hit-ratio evaluation.
	TopUnlabelled []int

	// BatchSize is used by every loader the manager produces.
	BatchSize int

	// Seed seeds the labelled-loader shuffle.
	Seed int64
}

// Manager owns a dataset, its splits, and the labelled/unlabelled partition
// of the train split.
type Manager struct {
	ds dataset.Dataset

	train      []int
	validation []int
	test       []int

	labelled      *roaring.Bitmap
	unlabelled    *roaring.Bitmap
	topUnlabelled *roaring.Bitmap

	batchSize int
	seed      int64
}

// New creates a Manager. The initial labelled set must be a subset of the
// train split; the unlabelled pool is the remainder.
func New(ds dataset.Dataset, optFns ...func(o *Options)) (*Manager, error) {
	opts := Options{
		BatchSize: dataset.DefaultLoaderOptions.BatchSize,
		Seed:      dataset.DefaultLoaderOptions.Seed,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("datamanager: batch size must be positive, got %d", opts.BatchSize)
	}

	train := slices.Clone(opts.TrainIndices)
	if train == nil {
		train = make([]int, ds.Len())
		for i := range train {
			train[i] = i
		}
	}

	m := &Manager{
		ds:         ds,
		train:      train,
		validation: slices.Clone(opts.ValidationIndices),
		test:       slices.Clone(opts.TestIndices),
		labelled:   roaring.New(),
		unlabelled: roaring.New(),
		batchSize:  opts.BatchSize,
		seed:       opts.Seed,
	}

	for _, i := range train {
		if err := m.checkIndex(i); err != nil {
			return nil, err
		}
		m.unlabelled.Add(uint32(i))
	}
	for _, i := range opts.ValidationIndices {
		if err := m.checkIndex(i); err != nil {
			return nil, err
		}
	}
	for _, i := range opts.TestIndices {
		if err := m.checkIndex(i); err != nil {
			return nil, err
		}
	}

	for _, i := range opts.LabelledIndices {
		if !m.unlabelled.Contains(uint32(i)) {
			return nil, fmt.Errorf("datamanager: initial labelled index %d is not in the train split", i)
		}
		m.unlabelled.Remove(uint32(i))
		m.labelled.Add(uint32(i))
	}

	if opts.TopUnlabelled != nil {
		m.topUnlabelled = roaring.New()
		for _, i := range opts.TopUnlabelled {
			if err := m.checkIndex(i); err != nil {
				return nil, err
			}
			m.topUnlabelled.Add(uint32(i))
		}
	}

	return m, nil
}

func (m *Manager) checkIndex(i int) error {
	if i < 0 || i >= m.ds.Len() {
		return fmt.Errorf("datamanager: index %d out of range [0,%d)", i, m.ds.Len())
	}
	return nil
}

// Len returns the total dataset size.
func (m *Manager) Len() int {
	return m.ds.Len()
}

// Dataset returns the underlying dataset.
func (m *Manager) Dataset() dataset.Dataset {
	return m.ds
}

// LabelledIndices returns the labelled train indices in ascending order.
func (m *Manager) LabelledIndices() []int {
	return toInts(m.labelled)
}

// UnlabelledIndices returns the unlabelled train indices in ascending order.
func (m *Manager) UnlabelledIndices() []int {
	return toInts(m.unlabelled)
}

// IsUnlabelled reports whether the index is in the unlabelled pool.
func (m *Manager) IsUnlabelled(i int) bool {
	return m.unlabelled.Contains(uint32(i))
}

// TopUnlabelled returns the oracle top-informative set, if configured.
func (m *Manager) TopUnlabelled() ([]int, bool) {
	if m.topUnlabelled == nil {
		return nil, false
	}
	return toInts(m.topUnlabelled), true
}

// HitRatio returns the fraction of the oracle top-informative set that the
// query selected. The second return is false when no set is configured.
func (m *Manager) HitRatio(query []int) (float64, bool) {
	if m.topUnlabelled == nil {
		return 0, false
	}

	hits := 0
	seen := roaring.New()
	for _, i := range query {
		if seen.Contains(uint32(i)) {
			continue
		}
		seen.Add(uint32(i))
		if m.topUnlabelled.Contains(uint32(i)) {
			hits++
		}
	}

	return float64(hits) / float64(m.topUnlabelled.GetCardinality()), true
}

// UpdateLabels moves the given indices from the unlabelled to the labelled
// pool. Every index must currently be unlabelled; on error the partition is
// left unchanged.
func (m *Manager) UpdateLabels(indices []int) error {
	seen := roaring.New()
	for _, i := range indices {
		if !m.unlabelled.Contains(uint32(i)) || seen.Contains(uint32(i)) {
			return fmt.Errorf("datamanager: %w: %d", ErrNotUnlabelled, i)
		}
		seen.Add(uint32(i))
	}

	for _, i := range indices {
		m.unlabelled.Remove(uint32(i))
		m.labelled.Add(uint32(i))
	}
	return nil
}

// Annotate writes a label through to the dataset, for oracles revealing
// held-out targets.
func (m *Manager) Annotate(i int, label int) error {
	setter, ok := m.ds.(dataset.LabelSetter)
	if !ok {
		return ErrNotAnnotatable
	}

	if err := m.checkIndex(i); err != nil {
		return err
	}

	return setter.SetLabel(i, label)
}

// PercentageLabelled returns the labelled share of the train split in
// percent.
func (m *Manager) PercentageLabelled() float64 {
	total := m.labelled.GetCardinality() + m.unlabelled.GetCardinality()
	if total == 0 {
		return 0
	}
	return float64(m.labelled.GetCardinality()) / float64(total) * 100
}

// LabelledLoader returns a shuffled loader over the labelled pool.
func (m *Manager) LabelledLoader() (*dataset.Loader, error) {
	return m.loader(m.LabelledIndices(), true)
}

// UnlabelledLoader returns a deterministic loader over the unlabelled pool.
// Row order matches UnlabelledIndices so scores can be mapped back.
func (m *Manager) UnlabelledLoader() (*dataset.Loader, error) {
	return m.loader(m.UnlabelledIndices(), false)
}

// TrainLoader returns a shuffled loader over the full train split,
// irrespective of labelling state.
func (m *Manager) TrainLoader() (*dataset.Loader, error) {
	return m.loader(m.train, true)
}

// ValidationLoader returns a loader over the validation split.
func (m *Manager) ValidationLoader() (*dataset.Loader, error) {
	return m.loader(m.validation, false)
}

// TestLoader returns a loader over the test split.
func (m *Manager) TestLoader() (*dataset.Loader, error) {
	return m.loader(m.test, false)
}

func (m *Manager) loader(indices []int, shuffle bool) (*dataset.Loader, error) {
	if indices == nil {
		indices = []int{}
	}
	return dataset.NewLoader(m.ds, indices, func(o *dataset.LoaderOptions) {
		o.BatchSize = m.batchSize
		o.Shuffle = shuffle
		o.Seed = m.seed
	})
}

// String returns a human-readable description.
func (m *Manager) String() string {
	return fmt.Sprintf("DataManager(total=%d, train=%d, validation=%d, test=%d, labelled=%d, unlabelled=%d)",
		m.ds.Len(), len(m.train), len(m.validation), len(m.test),
		m.labelled.GetCardinality(), m.unlabelled.GetCardinality())
}

func toInts(b *roaring.Bitmap) []int {
	out := make([]int, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
