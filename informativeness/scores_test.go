package informativeness

import (
	"math"
	"testing"

	"github.com/ojpb/relational/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeDistance(t *testing.T) {
	reference := [][]float32{{0, 0}, {1, 0}}

	t.Run("NearestReferenceWins", func(t *testing.T) {
		scores, err := RelativeDistance([][]float32{{1, 1}, {5, 0}}, reference, distance.MetricL2)
		require.NoError(t, err)
		require.Len(t, scores, 2)

		// (1,1) is squared distance 1 from (1,0); (5,0) is 16 from (1,0).
		assert.InDelta(t, 1, scores[0], 1e-9)
		assert.InDelta(t, 16, scores[1], 1e-9)
	})

	t.Run("EmptyReference", func(t *testing.T) {
		_, err := RelativeDistance([][]float32{{1}}, nil, distance.MetricL2)
		require.ErrorIs(t, err, ErrEmptyReference)
	})

	t.Run("UnknownMetric", func(t *testing.T) {
		_, err := RelativeDistance([][]float32{{1}}, reference, distance.Metric(42))
		require.Error(t, err)
	})
}

func TestLeastConfidence(t *testing.T) {
	scores := LeastConfidence([][]float64{
		{1, 0},
		{0.5, 0.5},
		{0.2, 0.3, 0.5},
	})

	assert.InDelta(t, 0, scores[0], 1e-9)
	assert.InDelta(t, 0.5, scores[1], 1e-9)
	assert.InDelta(t, 0.5, scores[2], 1e-9)
}

func TestMarginConfidence(t *testing.T) {
	scores := MarginConfidence([][]float64{
		{1, 0},
		{0.5, 0.5},
		{0.2, 0.3, 0.5},
		{1},
	})

	assert.InDelta(t, 0, scores[0], 1e-9)
	assert.InDelta(t, 1, scores[1], 1e-9)
	assert.InDelta(t, 0.8, scores[2], 1e-9)
	assert.InDelta(t, 0, scores[3], 1e-9)
}

func TestEntropy(t *testing.T) {
	scores := Entropy([][]float64{
		{1, 0},
		{0.5, 0.5},
	})

	assert.InDelta(t, 0, scores[0], 1e-9)
	assert.InDelta(t, math.Log(2), scores[1], 1e-9)
}
