package model

import (
	"context"
	"errors"
	"maps"

	"github.com/ojpb/relational/dataset"
)

// ErrUntrained is returned when a capability requiring a fitted model is
// queried before any training has occurred.
var ErrUntrained = errors.New("model queried before training")

// Record maps metric names to values, as produced by a single evaluation.
type Record map[string]float64

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Trainable is the model contract the strategy engine drives.
//
// Train fits the model on the labelled loader, optionally using the
// validation loader, and stores the fitted snapshot. Test evaluates the
// current snapshot, training is the caller's responsibility. Fitted and
// Reset expose the snapshot lifecycle to the engine.
type Trainable interface {
	Train(ctx context.Context, labelled, validation *dataset.Loader) error
	Test(ctx context.Context, loader *dataset.Loader) (Record, error)

	// Fitted reports whether a fitted snapshot is currently held.
	Fitted() bool

	// Reset discards the fitted snapshot, forcing a retrain on next use.
	Reset()

	// Description returns a human-readable model description.
	Description() string
}

// Embedder is an optional capability: per-sample representations used by
// distance-based strategies. Implementations must return ErrUntrained when
// no fitted snapshot is held.
type Embedder interface {
	Embeddings(ctx context.Context, loader *dataset.Loader) ([][]float32, error)
}

// Classifier is an optional capability: per-sample class probabilities used
// by uncertainty-based strategies. Row order matches the loader's index
// order. Implementations must return ErrUntrained when no fitted snapshot
// is held.
type Classifier interface {
	PredictProba(ctx context.Context, loader *dataset.Loader) ([][]float64, error)
}

// State holds the tagged {untrained | fitted(snapshot)} model state.
// The zero value is untrained.
type State[T any] struct {
	snapshot *T
}

// Set stores a fitted snapshot.
func (s *State[T]) Set(snapshot T) {
	s.snapshot = &snapshot
}

// Get returns the fitted snapshot, if any.
func (s *State[T]) Get() (T, bool) {
	if s.snapshot == nil {
		var zero T
		return zero, false
	}
	return *s.snapshot, true
}

// Fitted reports whether a snapshot is held.
func (s *State[T]) Fitted() bool {
	return s.snapshot != nil
}

// Reset discards the snapshot.
func (s *State[T]) Reset() {
	s.snapshot = nil
}
