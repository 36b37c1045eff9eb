// Package distance provides the scalar vector kernels used by the
// informativeness scorers and the built-in models.
//
// # Supported Metrics
//
//   - MetricL2: Squared Euclidean distance (default)
//   - MetricEuclidean: Euclidean distance
//   - MetricCosine: Cosine distance (1 - cosine similarity)
//   - MetricDot: Negative dot product
//
// # Usage
//
//	dist := distance.SquaredL2(a, b)
//	sim, err := distance.CosineSimilarity(a, b)
package distance
