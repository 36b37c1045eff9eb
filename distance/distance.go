package distance

import (
	"errors"
	"fmt"
	"math"
)

// ErrSizeMismatch is returned when two vectors have different lengths.
var ErrSizeMismatch = errors.New("vector sizes do not match")

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Euclidean calculates the L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Euclidean(a, b []float32) float32 {
	return float32(math.Sqrt(float64(SquaredL2(a, b))))
}

// Magnitude calculates the magnitude (length) of a vector.
func Magnitude(v []float32) float32 {
	return float32(math.Sqrt(float64(Dot(v, v))))
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns 0 when either vector has zero magnitude.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, ErrSizeMismatch
	}

	magnitudeA := Magnitude(a)
	magnitudeB := Magnitude(b)

	// Avoid division by zero
	if magnitudeA == 0 || magnitudeB == 0 {
		return 0, nil
	}

	return Dot(a, b) / (magnitudeA * magnitudeB), nil
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricEuclidean
	MetricCosine
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricEuclidean:
		return "Euclidean"
	case MetricCosine:
		return "Cosine"
	case MetricDot:
		return "Dot"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
// Larger values mean farther apart for every supported metric.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return SquaredL2, nil
	case MetricEuclidean:
		return Euclidean, nil
	case MetricCosine:
		return func(a, b []float32) float32 {
			sim, err := CosineSimilarity(a, b)
			if err != nil {
				return float32(math.Inf(1))
			}
			return 1 - sim
		}, nil
	case MetricDot:
		return func(a, b []float32) float32 {
			return -Dot(a, b)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
