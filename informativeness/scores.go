package informativeness

import (
	"errors"
	"fmt"
	"math"

	"github.com/ojpb/relational/distance"
)

// ErrEmptyReference is returned when the reference set is empty.
var ErrEmptyReference = errors.New("empty reference set")

// RelativeDistance scores each query row by its distance to the nearest
// reference row. Observations far from everything already labelled score
// highest.
func RelativeDistance(query, reference [][]float32, metric distance.Metric) ([]float64, error) {
	if len(reference) == 0 {
		return nil, ErrEmptyReference
	}

	dist, err := distance.Provider(metric)
	if err != nil {
		return nil, fmt.Errorf("informativeness: %w", err)
	}

	scores := make([]float64, len(query))
	for i, q := range query {
		nearest := math.Inf(1)
		for _, r := range reference {
			if d := float64(dist(q, r)); d < nearest {
				nearest = d
			}
		}
		scores[i] = nearest
	}

	return scores, nil
}

// LeastConfidence scores each probability row by one minus its maximum
// class probability.
func LeastConfidence(probs [][]float64) []float64 {
	scores := make([]float64, len(probs))
	for i, p := range probs {
		top := 0.0
		for _, v := range p {
			if v > top {
				top = v
			}
		}
		scores[i] = 1 - top
	}
	return scores
}

// MarginConfidence scores each probability row by one minus the margin
// between its two largest class probabilities. Rows with a single class
// score zero.
func MarginConfidence(probs [][]float64) []float64 {
	scores := make([]float64, len(probs))
	for i, p := range probs {
		if len(p) < 2 {
			continue
		}

		first, second := math.Inf(-1), math.Inf(-1)
		for _, v := range p {
			switch {
			case v > first:
				first, second = v, first
			case v > second:
				second = v
			}
		}
		scores[i] = 1 - (first - second)
	}
	return scores
}

// Entropy scores each probability row by its Shannon entropy in nats.
// Zero probabilities contribute nothing.
func Entropy(probs [][]float64) []float64 {
	scores := make([]float64, len(probs))
	for i, p := range probs {
		h := 0.0
		for _, v := range p {
			if v > 0 {
				h -= v * math.Log(v)
			}
		}
		scores[i] = h
	}
	return scores
}
