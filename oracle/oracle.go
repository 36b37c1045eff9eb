package oracle

import (
	"context"
	"fmt"

	"github.com/ojpb/relational/datamanager"
	"golang.org/x/time/rate"
)

// Oracle is the annotation source. UpdateDataset is called with the data
// manager and the selected indices before the engine moves them to the
// labelled pool; implementations mutate ground truth as a side effect.
type Oracle interface {
	UpdateDataset(ctx context.Context, m *datamanager.Manager, indices []int) error
}

// Simulated is an oracle backed by held-out labels, for experiments where
// the full ground truth is known but withheld.
type Simulated struct {
	labels map[int]int
}

// NewSimulated creates a simulated oracle from held-out labels.
func NewSimulated(labels map[int]int) *Simulated {
	return &Simulated{labels: labels}
}

// UpdateDataset writes the held-out label of every index through to the
// dataset. Indices without a held-out label are an error.
func (o *Simulated) UpdateDataset(ctx context.Context, m *datamanager.Manager, indices []int) error {
	for _, i := range indices {
		if err := ctx.Err(); err != nil {
			return err
		}

		label, ok := o.labels[i]
		if !ok {
			return fmt.Errorf("oracle: no held-out label for index %d", i)
		}

		if err := m.Annotate(i, label); err != nil {
			return fmt.Errorf("oracle: annotate index %d: %w", i, err)
		}
	}
	return nil
}

// RateLimited wraps an oracle with a token-bucket limit on annotated
// indices, modelling a bounded annotation interface such as a human
// annotator queue.
type RateLimited struct {
	inner   Oracle
	limiter *rate.Limiter
}

// NewRateLimited wraps inner, allowing perSec annotations per second with
// the given burst.
func NewRateLimited(inner Oracle, perSec rate.Limit, burst int) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(perSec, burst),
	}
}

// UpdateDataset waits for capacity covering all indices, then delegates.
func (o *RateLimited) UpdateDataset(ctx context.Context, m *datamanager.Manager, indices []int) error {
	if err := o.limiter.WaitN(ctx, len(indices)); err != nil {
		return fmt.Errorf("oracle: rate limit: %w", err)
	}
	return o.inner.UpdateDataset(ctx, m, indices)
}
