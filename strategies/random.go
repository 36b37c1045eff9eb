package strategies

import (
	"context"
	"math/rand"

	"github.com/ojpb/relational"
)

// Random is the baseline selector: a uniform sample of the unlabelled
// pool. It needs no model capabilities and never trains.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random selector seeded for reproducible runs.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Name returns the strategy name.
func (*Random) Name() string {
	return "random"
}

// Select returns numAnnotate indices drawn uniformly without replacement
// from the unlabelled pool.
func (r *Random) Select(_ context.Context, s *relational.Strategy, numAnnotate int) ([]int, error) {
	pool := s.UnlabelledIndices()
	r.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:numAnnotate], nil
}
