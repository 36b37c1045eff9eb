package relational_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ojpb/relational"
	"github.com/ojpb/relational/datamanager"
	"github.com/ojpb/relational/dataset"
	"github.com/ojpb/relational/model"
	"github.com/ojpb/relational/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// greedySelector picks the lowest unlabelled indices, so tests can predict
// every selection exactly.
type greedySelector struct{}

func (greedySelector) Name() string { return "greedy" }

func (greedySelector) Select(_ context.Context, s *relational.Strategy, numAnnotate int) ([]int, error) {
	return s.UnlabelledIndices()[:numAnnotate], nil
}

// scriptedSelector returns a fixed selection regardless of engine state.
type scriptedSelector struct {
	picks []int
}

func (scriptedSelector) Name() string { return "scripted" }

func (s scriptedSelector) Select(context.Context, *relational.Strategy, int) ([]int, error) {
	return s.picks, nil
}

// nilRecordModel reports no metrics at all: Test returns a nil record with
// a nil error.
type nilRecordModel struct {
	fitted bool
}

func (m *nilRecordModel) Train(context.Context, *dataset.Loader, *dataset.Loader) error {
	m.fitted = true
	return nil
}

func (m *nilRecordModel) Test(context.Context, *dataset.Loader) (model.Record, error) {
	return nil, nil
}

func (m *nilRecordModel) Fitted() bool { return m.fitted }

func (m *nilRecordModel) Reset() { m.fitted = false }

func (m *nilRecordModel) Description() string { return "nil record" }

// testSamples is a linearly separable two-class toy set: class 0 clusters
// near the origin, class 1 near (10, 10).
func testSamples(n int) ([][]float32, []int) {
	features := make([][]float32, n)
	labels := make([]int, n)
	for i := range features {
		base := float32(0)
		label := 0
		if i%2 == 1 {
			base = 10
			label = 1
		}
		features[i] = []float32{base + float32(i)*0.1, base - float32(i)*0.1}
		labels[i] = label
	}
	return features, labels
}

func newTestManager(t *testing.T, optFns ...func(o *datamanager.Options)) *datamanager.Manager {
	t.Helper()

	features, labels := testSamples(14)
	ds, err := dataset.FromFeatures(features, labels)
	require.NoError(t, err)

	defaults := func(o *datamanager.Options) {
		o.TrainIndices = []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
		o.ValidationIndices = []int{10, 11}
		o.TestIndices = []int{12, 13}
		o.LabelledIndices = []int{0, 1, 2}
		o.BatchSize = 4
	}

	dm, err := datamanager.New(ds, append([]func(o *datamanager.Options){defaults}, optFns...)...)
	require.NoError(t, err)

	return dm
}

func newTestStrategy(t *testing.T, sel relational.Selector, optFns ...func(o *datamanager.Options)) *relational.Strategy {
	t.Helper()

	knn, err := model.NewKNN()
	require.NoError(t, err)

	s, err := relational.New(newTestManager(t, optFns...), knn, sel)
	require.NoError(t, err)

	return s
}

func TestNew(t *testing.T) {
	t.Run("initial provenance", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		assert.Equal(t, 0, s.Iteration())
		assert.Equal(t, map[int]string{
			0: relational.ProvenanceInit,
			1: relational.ProvenanceInit,
			2: relational.ProvenanceInit,
		}, s.LabelledBy())
	})

	t.Run("nil data manager", func(t *testing.T) {
		knn, err := model.NewKNN()
		require.NoError(t, err)

		_, err = relational.New(nil, knn, greedySelector{})
		require.Error(t, err)
	})

	t.Run("nil model", func(t *testing.T) {
		_, err := relational.New(newTestManager(t), nil, greedySelector{})
		require.Error(t, err)
	})
}

func TestStep(t *testing.T) {
	ctx := context.Background()

	t.Run("selects from unlabelled pool", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		selected, err := s.Step(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4}, selected)

		// Selection must not mutate the partition.
		assert.Equal(t, []int{0, 1, 2}, s.LabelledIndices())
		assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9}, s.UnlabelledIndices())
		assert.Equal(t, 0, s.Iteration())
	})

	t.Run("no selector", func(t *testing.T) {
		s := newTestStrategy(t, nil)

		_, err := s.Step(ctx, 2)
		require.ErrorIs(t, err, relational.ErrNoSelector)
	})

	t.Run("invalid num annotate", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		_, err := s.Step(ctx, 0)
		require.ErrorIs(t, err, relational.ErrInvalidNumAnnotate)

		_, err = s.Step(ctx, 8)
		require.ErrorIs(t, err, relational.ErrInvalidNumAnnotate)
	})

	t.Run("contract violations", func(t *testing.T) {
		tests := []struct {
			name  string
			picks []int
		}{
			{name: "wrong count", picks: []int{3}},
			{name: "duplicate index", picks: []int{3, 3}},
			{name: "labelled index", picks: []int{0, 3}},
			{name: "out of range index", picks: []int{3, 42}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newTestStrategy(t, scriptedSelector{picks: tt.picks})

				_, err := s.Step(ctx, 2)

				var contractErr *relational.SelectionContractError
				require.ErrorAs(t, err, &contractErr)
				assert.Equal(t, "scripted", contractErr.Selector)
				assert.Equal(t, 2, contractErr.Requested)
			})
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("moves indices and increments iteration", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		err := s.Update(ctx, []int{7, 4}, func(o *relational.UpdateOptions) {
			o.Tag = "1"
		})
		require.NoError(t, err)

		assert.Equal(t, []int{0, 1, 2, 4, 7}, s.LabelledIndices())
		assert.Equal(t, []int{3, 5, 6, 8, 9}, s.UnlabelledIndices())
		assert.Equal(t, 1, s.Iteration())
		assert.Equal(t, "1", s.LabelledBy()[7])
		assert.Equal(t, "1", s.LabelledBy()[4])
		assert.Equal(t, relational.ProvenanceInit, s.LabelledBy()[0])
	})

	t.Run("rejects labelled index atomically", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		err := s.Update(ctx, []int{3, 0})
		require.ErrorIs(t, err, datamanager.ErrNotUnlabelled)

		// Nothing moved, iteration unchanged.
		assert.Equal(t, []int{0, 1, 2}, s.LabelledIndices())
		assert.Equal(t, 0, s.Iteration())
	})

	t.Run("oracle writes labels before the move", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		sim := oracle.NewSimulated(map[int]int{3: 1, 4: 0})
		err := s.Update(ctx, []int{3, 4}, func(o *relational.UpdateOptions) {
			o.Oracle = sim
		})
		require.NoError(t, err)

		sample, err := s.DataManager().Dataset().Get(3)
		require.NoError(t, err)
		assert.Equal(t, 1, sample.Label)
	})
}

func TestTheoreticalPerformance(t *testing.T) {
	ctx := context.Background()

	s := newTestStrategy(t, greedySelector{})

	result, err := s.TheoreticalPerformance(ctx)
	require.NoError(t, err)
	assert.Contains(t, result, "accuracy")

	// The privileged fit must not leak into the loop.
	assert.False(t, s.Model().Fitted())

	perfs := s.Performances()
	require.Contains(t, perfs, relational.FullKey)
	assert.Equal(t, result["accuracy"], perfs[relational.FullKey]["accuracy"])

	t.Run("nil test record", func(t *testing.T) {
		dm := newTestManager(t, func(o *datamanager.Options) {
			o.TopUnlabelled = []int{4, 7, 9}
		})
		s, err := relational.New(dm, &nilRecordModel{}, greedySelector{})
		require.NoError(t, err)

		result, err := s.TheoreticalPerformance(ctx)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(result[relational.HitRatioMetric]))
	})
}

func TestCurrentPerformance(t *testing.T) {
	ctx := context.Background()

	t.Run("trains and resets", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		result, err := s.CurrentPerformance(ctx)
		require.NoError(t, err)
		assert.Contains(t, result, "accuracy")
		assert.False(t, s.Model().Fitted())
	})

	t.Run("hit ratio with oracle top set", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{}, func(o *datamanager.Options) {
			o.TopUnlabelled = []int{4, 7, 9}
		})

		result, err := s.CurrentPerformance(ctx, func(o *relational.EvalOptions) {
			o.Query = []int{4, 7}
		})
		require.NoError(t, err)
		assert.InDelta(t, 2.0/3.0, result[relational.HitRatioMetric], 1e-9)
	})

	t.Run("hit ratio NaN without query", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{}, func(o *datamanager.Options) {
			o.TopUnlabelled = []int{4, 7, 9}
		})

		result, err := s.CurrentPerformance(ctx)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(result[relational.HitRatioMetric]))
	})

	t.Run("no hit ratio without top set", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		result, err := s.CurrentPerformance(ctx, func(o *relational.EvalOptions) {
			o.Query = []int{4, 7}
		})
		require.NoError(t, err)
		assert.NotContains(t, result, relational.HitRatioMetric)
	})

	t.Run("nil test record", func(t *testing.T) {
		dm := newTestManager(t, func(o *datamanager.Options) {
			o.TopUnlabelled = []int{4, 7, 9}
		})
		s, err := relational.New(dm, &nilRecordModel{}, greedySelector{})
		require.NoError(t, err)

		result, err := s.CurrentPerformance(ctx, func(o *relational.EvalOptions) {
			o.Query = []int{4, 7}
		})
		require.NoError(t, err)
		assert.InDelta(t, 2.0/3.0, result[relational.HitRatioMetric], 1e-9)
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("exhausts the pool", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		history, err := s.Run(ctx, 2, func(o *relational.RunOptions) {
			o.ReturnQueryHistory = true
		})
		require.NoError(t, err)

		// Pool of 7 annotated 2 at a time takes 4 loop passes.
		require.Len(t, history, 4)
		assert.Equal(t, []int{3, 4}, history[1])
		assert.Equal(t, []int{5, 6}, history[2])
		assert.Equal(t, []int{7, 8}, history[3])
		assert.Equal(t, []int{9}, history[4])

		assert.Empty(t, s.UnlabelledIndices())
		assert.Equal(t, 4, s.Iteration())
		assert.InDelta(t, 100.0, s.PercentageLabelled(), 1e-9)

		// One record per pre-update iteration plus the final measurement.
		perfs := s.Performances()
		for _, key := range []string{"0", "1", "2", "3", "4"} {
			assert.Contains(t, perfs, key)
		}

		// Every index carries its labelling iteration.
		labelledBy := s.LabelledBy()
		assert.Equal(t, "0", labelledBy[3])
		assert.Equal(t, "1", labelledBy[5])
		assert.Equal(t, "2", labelledBy[7])
		assert.Equal(t, "3", labelledBy[9])
	})

	t.Run("iteration cap", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		_, err := s.Run(ctx, 2, func(o *relational.RunOptions) {
			o.NumIterations = 1
		})
		require.NoError(t, err)

		assert.Equal(t, 1, s.Iteration())
		assert.Equal(t, []int{0, 1, 2, 3, 4}, s.LabelledIndices())

		perfs := s.Performances()
		assert.Contains(t, perfs, "0")
		assert.Contains(t, perfs, "1")
	})

	t.Run("selector error aborts", func(t *testing.T) {
		s := newTestStrategy(t, scriptedSelector{picks: []int{3}})

		_, err := s.Run(ctx, 2)

		var contractErr *relational.SelectionContractError
		require.ErrorAs(t, err, &contractErr)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newTestStrategy(t, greedySelector{})

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Run(cancelled, 2)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestPerformanceHistory(t *testing.T) {
	ctx := context.Background()

	s := newTestStrategy(t, greedySelector{})

	_, err := s.TheoreticalPerformance(ctx)
	require.NoError(t, err)

	_, err = s.Run(ctx, 3)
	require.NoError(t, err)

	table := s.PerformanceHistory()
	require.Equal(t, []string{"Iteration", "accuracy"}, table.Columns)
	require.Len(t, table.Rows, 4)
	for i, row := range table.Rows {
		assert.Equal(t, float64(i), row[0])
	}
}

func TestStrategyString(t *testing.T) {
	s := newTestStrategy(t, greedySelector{})

	out := s.String()
	assert.Contains(t, out, "Strategy: greedy")
	assert.Contains(t, out, "DataManager(total=14, train=10, validation=2, test=2, labelled=3, unlabelled=7)")
	assert.Contains(t, out, "KNN(k=3, metric=L2)")
	assert.Contains(t, out, "Size of Dataset: 14")
}

func TestUpdateAnnotations(t *testing.T) {
	s := newTestStrategy(t, greedySelector{})

	require.NoError(t, s.UpdateAnnotations([]int{5}))
	assert.Contains(t, s.LabelledIndices(), 5)

	// The passthrough must not advance the iteration counter.
	assert.Equal(t, 0, s.Iteration())

	err := s.UpdateAnnotations([]int{5})
	require.True(t, errors.Is(err, datamanager.ErrNotUnlabelled))
}
