package strategies_test

import (
	"context"
	"testing"

	"github.com/ojpb/relational"
	"github.com/ojpb/relational/datamanager"
	"github.com/ojpb/relational/dataset"
	"github.com/ojpb/relational/model"
	"github.com/ojpb/relational/strategies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The toy set keeps the labelled cluster near the origin with two clear
// outliers (4 and 6) in the unlabelled pool.
func newStrategy(t *testing.T, sel relational.Selector, m model.Trainable) *relational.Strategy {
	t.Helper()

	features := [][]float32{
		{0, 0},   // 0 labelled
		{1, 0},   // 1 labelled
		{0, 1},   // 2 labelled
		{2, 0},   // 3
		{50, 50}, // 4 far outlier
		{3, 1},   // 5
		{20, 20}, // 6 outlier
		{1, 1},   // 7 validation
		{0, 2},   // 8 test
	}
	labels := []int{0, 0, 1, 0, 1, 0, 1, 0, 1}

	ds, err := dataset.FromFeatures(features, labels)
	require.NoError(t, err)

	dm, err := datamanager.New(ds, func(o *datamanager.Options) {
		o.TrainIndices = []int{0, 1, 2, 3, 4, 5, 6}
		o.ValidationIndices = []int{7}
		o.TestIndices = []int{8}
		o.LabelledIndices = []int{0, 1, 2}
		o.BatchSize = 4
	})
	require.NoError(t, err)

	if m == nil {
		m, err = model.NewKNN()
		require.NoError(t, err)
	}

	s, err := relational.New(dm, m, sel)
	require.NoError(t, err)

	return s
}

// opaqueModel is a Trainable with no optional capabilities.
type opaqueModel struct {
	fitted bool
}

func (m *opaqueModel) Train(context.Context, *dataset.Loader, *dataset.Loader) error {
	m.fitted = true
	return nil
}

func (m *opaqueModel) Test(context.Context, *dataset.Loader) (model.Record, error) {
	return model.Record{"accuracy": 0}, nil
}

func (m *opaqueModel) Fitted() bool { return m.fitted }

func (m *opaqueModel) Reset() { m.fitted = false }

func (m *opaqueModel) Description() string { return "opaque" }

// countingModel tracks how often the selector fits it.
type countingModel struct {
	*model.KNN
	trainCalls int
}

func (m *countingModel) Train(ctx context.Context, labelled, validation *dataset.Loader) error {
	m.trainCalls++
	return m.KNN.Train(ctx, labelled, validation)
}

func TestSelectKeepsFittedModel(t *testing.T) {
	ctx := context.Background()

	knn, err := model.NewKNN()
	require.NoError(t, err)
	m := &countingModel{KNN: knn}

	sel := strategies.NewRelativeDistance()
	s := newStrategy(t, sel, m)

	_, err = s.Step(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, m.trainCalls)

	// A fitted model is reused as is.
	_, err = s.Step(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, m.trainCalls)
}

func TestRelativeDistance(t *testing.T) {
	ctx := context.Background()

	t.Run("selects the farthest observations", func(t *testing.T) {
		sel := strategies.NewRelativeDistance()
		s := newStrategy(t, sel, nil)

		selected, err := s.Step(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 6}, selected)
	})

	t.Run("name", func(t *testing.T) {
		assert.Equal(t, "relative_distance", strategies.NewRelativeDistance().Name())
	})

	t.Run("rejects models without embeddings", func(t *testing.T) {
		sel := strategies.NewRelativeDistance()
		s := newStrategy(t, sel, &opaqueModel{})

		_, err := s.Step(ctx, 2)
		require.ErrorIs(t, err, strategies.ErrNotEmbedder)
	})
}

func TestUncertaintySelectors(t *testing.T) {
	ctx := context.Background()

	// KNN with k=3 over three labelled samples votes 2:1 everywhere, so
	// every score ties and selection falls back to ascending index order.
	selectors := []relational.Selector{
		strategies.NewLeastConfidence(),
		strategies.NewMargin(),
		strategies.NewEntropy(),
	}

	for _, sel := range selectors {
		t.Run(sel.Name(), func(t *testing.T) {
			s := newStrategy(t, sel, nil)

			selected, err := s.Step(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, []int{3, 4}, selected)
		})
	}

	t.Run("rejects models without probabilities", func(t *testing.T) {
		s := newStrategy(t, strategies.NewLeastConfidence(), &opaqueModel{})

		_, err := s.Step(ctx, 2)
		require.ErrorIs(t, err, strategies.ErrNotClassifier)
	})
}

func TestRandom(t *testing.T) {
	ctx := context.Background()

	t.Run("draws from the unlabelled pool", func(t *testing.T) {
		s := newStrategy(t, strategies.NewRandom(42), nil)

		selected, err := s.Step(ctx, 3)
		require.NoError(t, err)
		require.Len(t, selected, 3)
		for _, i := range selected {
			assert.Contains(t, []int{3, 4, 5, 6}, i)
		}
	})

	t.Run("deterministic for a seed", func(t *testing.T) {
		a, err := newStrategy(t, strategies.NewRandom(7), nil).Step(ctx, 4)
		require.NoError(t, err)
		b, err := newStrategy(t, strategies.NewRandom(7), nil).Step(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
