package strategies

import (
	"context"
	"fmt"

	"github.com/ojpb/relational"
	"github.com/ojpb/relational/informativeness"
	"github.com/ojpb/relational/model"
)

// uncertainty implements the shared flow of probability-based selectors:
// fit, predict over the unlabelled pool, score, rank. The model must
// implement model.Classifier.
type uncertainty struct {
	name  string
	score func(probs [][]float64) []float64
}

func (u *uncertainty) Name() string {
	return u.name
}

func (u *uncertainty) Select(ctx context.Context, s *relational.Strategy, numAnnotate int) ([]int, error) {
	classifier, ok := s.Model().(model.Classifier)
	if !ok {
		return nil, ErrNotClassifier
	}

	unlabelled, indices, err := fitAndLoadUnlabelled(ctx, s)
	if err != nil {
		return nil, err
	}

	probs, err := classifier.PredictProba(ctx, unlabelled)
	if err != nil {
		return nil, fmt.Errorf("predict unlabelled pool: %w", err)
	}

	return rank(indices, u.score(probs), numAnnotate)
}

// LeastConfidence selects the observations whose top class probability is
// lowest.
type LeastConfidence struct {
	uncertainty
}

// NewLeastConfidence creates a LeastConfidence selector.
func NewLeastConfidence() *LeastConfidence {
	return &LeastConfidence{uncertainty{
		name:  "least_confidence",
		score: informativeness.LeastConfidence,
	}}
}

// Margin selects the observations with the smallest margin between the two
// most probable classes.
type Margin struct {
	uncertainty
}

// NewMargin creates a Margin selector.
func NewMargin() *Margin {
	return &Margin{uncertainty{
		name:  "margin",
		score: informativeness.MarginConfidence,
	}}
}

// Entropy selects the observations with the highest predictive entropy.
type Entropy struct {
	uncertainty
}

// NewEntropy creates an Entropy selector.
func NewEntropy() *Entropy {
	return &Entropy{uncertainty{
		name:  "entropy",
		score: informativeness.Entropy,
	}}
}
