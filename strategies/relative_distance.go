package strategies

import (
	"context"
	"fmt"

	"github.com/ojpb/relational"
	"github.com/ojpb/relational/distance"
	"github.com/ojpb/relational/informativeness"
	"github.com/ojpb/relational/model"
)

// RelativeDistance is a diversity selector: it trains the model on the
// labelled pool, embeds both pools, and picks the unlabelled observations
// farthest from their nearest labelled neighbour. The model must implement
// model.Embedder.
type RelativeDistance struct {
	metric distance.Metric
}

// RelativeDistanceOptions configures the RelativeDistance selector.
type RelativeDistanceOptions struct {
	// Metric is the distance used between embeddings.
	Metric distance.Metric
}

// DefaultRelativeDistanceOptions holds the default selector options.
var DefaultRelativeDistanceOptions = RelativeDistanceOptions{
	Metric: distance.MetricL2,
}

// NewRelativeDistance creates a RelativeDistance selector.
func NewRelativeDistance(optFns ...func(o *RelativeDistanceOptions)) *RelativeDistance {
	opts := DefaultRelativeDistanceOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RelativeDistance{metric: opts.Metric}
}

// Name returns the strategy name.
func (*RelativeDistance) Name() string {
	return "relative_distance"
}

// Select returns the numAnnotate unlabelled indices with the greatest
// distance to the labelled pool.
func (rd *RelativeDistance) Select(ctx context.Context, s *relational.Strategy, numAnnotate int) ([]int, error) {
	embedder, ok := s.Model().(model.Embedder)
	if !ok {
		return nil, ErrNotEmbedder
	}

	unlabelled, indices, err := fitAndLoadUnlabelled(ctx, s)
	if err != nil {
		return nil, err
	}
	labelled, err := s.LabelledLoader()
	if err != nil {
		return nil, err
	}

	query, err := embedder.Embeddings(ctx, unlabelled)
	if err != nil {
		return nil, fmt.Errorf("embed unlabelled pool: %w", err)
	}
	reference, err := embedder.Embeddings(ctx, labelled)
	if err != nil {
		return nil, fmt.Errorf("embed labelled pool: %w", err)
	}

	scores, err := informativeness.RelativeDistance(query, reference, rd.metric)
	if err != nil {
		return nil, err
	}

	return rank(indices, scores, numAnnotate)
}
