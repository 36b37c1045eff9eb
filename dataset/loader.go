package dataset

import (
	"context"
	"fmt"
	"iter"
	"math/rand"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Batch is a contiguous group of samples produced by a Loader.
// Indices[i] is the dataset index of row i in Features/Labels.
type Batch struct {
	Indices  []int
	Features [][]float32
	Labels   []int
}

// Len returns the number of samples in the batch.
func (b *Batch) Len() int {
	return len(b.Indices)
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// BatchSize is the maximum number of samples per batch.
	BatchSize int

	// Shuffle reorders the index subset before every pass.
	// Scoring loaders must keep this off so row order matches index order.
	Shuffle bool

	// Seed seeds the shuffle permutation for reproducible runs.
	Seed int64

	// Parallelism bounds concurrent sample fetches within a batch.
	Parallelism int
}

// DefaultLoaderOptions are the options used when none are supplied.
var DefaultLoaderOptions = LoaderOptions{
	BatchSize:   32,
	Shuffle:     false,
	Seed:        1,
	Parallelism: 4,
}

// Loader iterates a fixed index subset of a dataset in batches.
type Loader struct {
	ds      Dataset
	indices []int
	opts    LoaderOptions

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLoader creates a Loader over the given index subset.
// A nil subset means the whole dataset.
func NewLoader(ds Dataset, indices []int, optFns ...func(o *LoaderOptions)) (*Loader, error) {
	opts := DefaultLoaderOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size must be positive, got %d", opts.BatchSize)
	}

	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}

	if indices == nil {
		indices = make([]int, ds.Len())
		for i := range indices {
			indices[i] = i
		}
	} else {
		for _, i := range indices {
			if i < 0 || i >= ds.Len() {
				return nil, fmt.Errorf("dataset: loader index %d out of range [0,%d)", i, ds.Len())
			}
		}
		indices = slices.Clone(indices)
	}

	return &Loader{
		ds:      ds,
		indices: indices,
		opts:    opts,
		rng:     rand.New(rand.NewSource(opts.Seed)), // nolint gosec
	}, nil
}

// Len returns the number of samples the loader covers.
func (l *Loader) Len() int {
	return len(l.indices)
}

// NumBatches returns the number of batches per pass.
func (l *Loader) NumBatches() int {
	return (len(l.indices) + l.opts.BatchSize - 1) / l.opts.BatchSize
}

// Indices returns a copy of the index subset in iteration order
// (pre-shuffle).
func (l *Loader) Indices() []int {
	return slices.Clone(l.indices)
}

// Batches returns an iterator over one pass of batches.
// The iterator stops early on context cancellation or fetch error.
func (l *Loader) Batches(ctx context.Context) iter.Seq2[*Batch, error] {
	return func(yield func(*Batch, error) bool) {
		order := l.passOrder()

		for start := 0; start < len(order); start += l.opts.BatchSize {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			end := min(start+l.opts.BatchSize, len(order))
			batch, err := l.loadBatch(ctx, order[start:end])
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(batch, nil) {
				return
			}
		}
	}
}

// All collects a full pass into a single batch.
// Row order matches Indices() when shuffling is off.
func (l *Loader) All(ctx context.Context) (*Batch, error) {
	all := &Batch{
		Indices:  make([]int, 0, len(l.indices)),
		Features: make([][]float32, 0, len(l.indices)),
		Labels:   make([]int, 0, len(l.indices)),
	}

	for batch, err := range l.Batches(ctx) {
		if err != nil {
			return nil, err
		}
		all.Indices = append(all.Indices, batch.Indices...)
		all.Features = append(all.Features, batch.Features...)
		all.Labels = append(all.Labels, batch.Labels...)
	}

	return all, nil
}

// passOrder returns the index order for one pass.
func (l *Loader) passOrder() []int {
	if !l.opts.Shuffle {
		return l.indices
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	order := slices.Clone(l.indices)
	l.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// loadBatch fetches the samples for the given indices with bounded
// parallelism, preserving order.
func (l *Loader) loadBatch(ctx context.Context, indices []int) (*Batch, error) {
	batch := &Batch{
		Indices:  slices.Clone(indices),
		Features: make([][]float32, len(indices)),
		Labels:   make([]int, len(indices)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Parallelism)

	for row, idx := range indices {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			sample, err := l.ds.Get(idx)
			if err != nil {
				return fmt.Errorf("dataset: fetch index %d: %w", idx, err)
			}

			batch.Features[row] = sample.Features
			batch.Labels[row] = sample.Label
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return batch, nil
}
