package dataset

import (
	"fmt"
	"sync"
)

// Sample is a single observation: a feature vector and its target label.
type Sample struct {
	Features []float32
	Label    int
}

// Dataset provides indexed access to samples.
// Implementations must be safe for concurrent reads.
type Dataset interface {
	// Len returns the total number of samples.
	Len() int

	// Get returns the sample at the given index.
	Get(i int) (Sample, error)
}

// LabelSetter is an optional interface for datasets whose labels can be
// written after construction. Oracles use it to reveal held-out targets.
type LabelSetter interface {
	SetLabel(i int, label int) error
}

// InMemory is a Dataset backed by a slice of samples.
type InMemory struct {
	mu      sync.RWMutex
	samples []Sample
}

// NewInMemory creates an in-memory dataset from the given samples.
func NewInMemory(samples []Sample) *InMemory {
	return &InMemory{samples: samples}
}

// FromFeatures creates an in-memory dataset from parallel feature and label
// slices.
func FromFeatures(features [][]float32, labels []int) (*InMemory, error) {
	if len(features) != len(labels) {
		return nil, fmt.Errorf("dataset: features/labels length mismatch: %d != %d", len(features), len(labels))
	}

	samples := make([]Sample, len(features))
	for i := range features {
		samples[i] = Sample{Features: features[i], Label: labels[i]}
	}

	return NewInMemory(samples), nil
}

// Len returns the total number of samples.
func (d *InMemory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.samples)
}

// Get returns the sample at the given index.
func (d *InMemory) Get(i int) (Sample, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if i < 0 || i >= len(d.samples) {
		return Sample{}, fmt.Errorf("dataset: index %d out of range [0,%d)", i, len(d.samples))
	}

	return d.samples[i], nil
}

// SetLabel overwrites the label of the sample at the given index.
func (d *InMemory) SetLabel(i int, label int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i < 0 || i >= len(d.samples) {
		return fmt.Errorf("dataset: index %d out of range [0,%d)", i, len(d.samples))
	}

	d.samples[i].Label = label
	return nil
}
