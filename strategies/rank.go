package strategies

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ojpb/relational"
	"github.com/ojpb/relational/dataset"
)

var (
	// ErrNotEmbedder is returned when a diversity selector is paired with
	// a model that cannot produce embeddings.
	ErrNotEmbedder = errors.New("strategies: model does not implement model.Embedder")

	// ErrNotClassifier is returned when an uncertainty selector is paired
	// with a model that cannot produce class probabilities.
	ErrNotClassifier = errors.New("strategies: model does not implement model.Classifier")
)

// rank returns the dataset indices of the numAnnotate highest-scoring
// rows. scores[i] belongs to indices[i]. Ties break by ascending dataset
// index.
func rank(indices []int, scores []float64, numAnnotate int) ([]int, error) {
	if len(scores) != len(indices) {
		return nil, fmt.Errorf("strategies: %d scores for %d candidates", len(scores), len(indices))
	}

	order := make([]int, len(indices))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return indices[order[a]] < indices[order[b]]
	})

	selected := make([]int, numAnnotate)
	for i := range selected {
		selected[i] = indices[order[i]]
	}
	return selected, nil
}

// fitAndLoadUnlabelled trains the engine's model on the labelled pool,
// unless a fitted state is already held, and returns the deterministic
// unlabelled loader plus its index order.
func fitAndLoadUnlabelled(ctx context.Context, s *relational.Strategy) (*dataset.Loader, []int, error) {
	if !s.Model().Fitted() {
		labelled, err := s.LabelledLoader()
		if err != nil {
			return nil, nil, err
		}
		validation, err := s.ValidationLoader()
		if err != nil {
			return nil, nil, err
		}
		if err := s.Model().Train(ctx, labelled, validation); err != nil {
			return nil, nil, err
		}
	}

	unlabelled, err := s.UnlabelledLoader()
	if err != nil {
		return nil, nil, err
	}
	return unlabelled, unlabelled.Indices(), nil
}
