package model

import (
	"context"
	"fmt"
	"sort"

	"github.com/ojpb/relational/dataset"
	"github.com/ojpb/relational/distance"
)

// KNNOptions configures a KNN model.
type KNNOptions struct {
	// K is the number of neighbours consulted per prediction.
	K int

	// Metric selects the distance function.
	Metric distance.Metric
}

// DefaultKNNOptions are the options used when none are supplied.
var DefaultKNNOptions = KNNOptions{
	K:      3,
	Metric: distance.MetricL2,
}

// knnSnapshot is the fitted state: the memorized labelled samples.
type knnSnapshot struct {
	features   [][]float32
	labels     []int
	numClasses int
}

// KNN is an exact k-nearest-neighbour classifier. It exists so the library
// is runnable end-to-end without an external ML runtime; real deployments
// wrap their own Trainable.
type KNN struct {
	opts  KNNOptions
	dist  distance.Func
	state State[knnSnapshot]
}

// NewKNN creates a KNN model.
func NewKNN(optFns ...func(o *KNNOptions)) (*KNN, error) {
	opts := DefaultKNNOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.K <= 0 {
		return nil, fmt.Errorf("model: k must be positive, got %d", opts.K)
	}

	dist, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	return &KNN{opts: opts, dist: dist}, nil
}

// Train memorizes the labelled samples as the fitted snapshot.
// The validation loader is accepted for contract parity and unused.
func (m *KNN) Train(ctx context.Context, labelled, validation *dataset.Loader) error {
	all, err := labelled.All(ctx)
	if err != nil {
		return fmt.Errorf("model: train: %w", err)
	}

	if all.Len() == 0 {
		return fmt.Errorf("model: train: empty labelled set")
	}

	numClasses := 0
	for _, label := range all.Labels {
		if label < 0 {
			return fmt.Errorf("model: train: negative label %d", label)
		}
		if label+1 > numClasses {
			numClasses = label + 1
		}
	}

	m.state.Set(knnSnapshot{
		features:   all.Features,
		labels:     all.Labels,
		numClasses: numClasses,
	})
	return nil
}

// Test evaluates accuracy on the given loader.
func (m *KNN) Test(ctx context.Context, loader *dataset.Loader) (Record, error) {
	probs, batch, err := m.predict(ctx, loader)
	if err != nil {
		return nil, err
	}

	correct := 0
	for row, p := range probs {
		if argmax(p) == batch.Labels[row] {
			correct++
		}
	}

	accuracy := 0.0
	if len(probs) > 0 {
		accuracy = float64(correct) / float64(len(probs))
	}

	return Record{"accuracy": accuracy}, nil
}

// PredictProba returns neighbour-vote class probabilities per sample.
func (m *KNN) PredictProba(ctx context.Context, loader *dataset.Loader) ([][]float64, error) {
	probs, _, err := m.predict(ctx, loader)
	return probs, err
}

// Embeddings returns the raw feature vectors as representations.
func (m *KNN) Embeddings(ctx context.Context, loader *dataset.Loader) ([][]float32, error) {
	if !m.state.Fitted() {
		return nil, fmt.Errorf("model: embeddings: %w", ErrUntrained)
	}

	all, err := loader.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("model: embeddings: %w", err)
	}

	return all.Features, nil
}

// Fitted reports whether a fitted snapshot is currently held.
func (m *KNN) Fitted() bool {
	return m.state.Fitted()
}

// Reset discards the fitted snapshot.
func (m *KNN) Reset() {
	m.state.Reset()
}

// Description returns a human-readable model description.
func (m *KNN) Description() string {
	return fmt.Sprintf("KNN(k=%d, metric=%s)", m.opts.K, m.opts.Metric)
}

func (m *KNN) predict(ctx context.Context, loader *dataset.Loader) ([][]float64, *dataset.Batch, error) {
	snap, ok := m.state.Get()
	if !ok {
		return nil, nil, fmt.Errorf("model: predict: %w", ErrUntrained)
	}

	all, err := loader.All(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("model: predict: %w", err)
	}

	k := min(m.opts.K, len(snap.features))
	probs := make([][]float64, all.Len())

	for row, query := range all.Features {
		dists := make([]float32, len(snap.features))
		order := make([]int, len(snap.features))
		for i, ref := range snap.features {
			dists[i] = m.dist(query, ref)
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return dists[order[a]] < dists[order[b]]
		})

		votes := make([]float64, snap.numClasses)
		for _, i := range order[:k] {
			votes[snap.labels[i]] += 1.0 / float64(k)
		}
		probs[row] = votes
	}

	return probs, all, nil
}

func argmax(p []float64) int {
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}
