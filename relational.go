package relational

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ojpb/relational/codec"
	"github.com/ojpb/relational/datamanager"
	"github.com/ojpb/relational/dataset"
	"github.com/ojpb/relational/model"
)

// HitRatioMetric is the metric name under which the oracle hit ratio is
// recorded when a top-informative set is configured.
const HitRatioMetric = "hit_ratio"

// Selector implements one active-learning selection policy: given the
// engine state, return exactly numAnnotate distinct indices drawn from the
// unlabelled pool, most informative first. Selection must not mutate the
// partition; mutation happens only via Update.
type Selector interface {
	// Name returns a short strategy name for logs and summaries.
	Name() string

	// Select returns the indices to annotate next.
	Select(ctx context.Context, s *Strategy, numAnnotate int) ([]int, error)
}

// Strategy drives the active-learning iteration protocol: score, rank,
// select, annotate, retrain, evaluate. One instance exclusively owns its
// partition, performance history, and labelling provenance.
//
// Strategy is not safe for concurrent use; the protocol is sequential by
// design.
type Strategy struct {
	dm       *datamanager.Manager
	model    model.Trainable
	selector Selector

	iteration int
	tracker   *tracker

	logger      *Logger
	metrics     MetricsCollector
	codec       codec.Codec
	compression Compression
}

// New creates a Strategy over the given data manager, model, and selector.
// The initially labelled indices receive the "Initialisation" provenance
// tag.
func New(dm *datamanager.Manager, m model.Trainable, sel Selector, optFns ...Option) (*Strategy, error) {
	if dm == nil {
		return nil, fmt.Errorf("relational: data manager must not be nil")
	}
	if m == nil {
		return nil, fmt.Errorf("relational: model must not be nil")
	}

	opts := applyOptions(optFns)

	s := &Strategy{
		dm:          dm,
		model:       m,
		selector:    sel,
		tracker:     newTracker(),
		logger:      opts.logger,
		metrics:     opts.metrics,
		codec:       opts.codec,
		compression: opts.compression,
	}
	s.tracker.logLabelledBy(dm.LabelledIndices(), ProvenanceInit)

	return s, nil
}

// TheoreticalPerformance trains on the entire train split (as if fully
// labelled), evaluates, and stores the result under the "full" key: the
// benchmark ceiling for the learning curve. The fitted state is reset
// afterward so this privileged fit is never mistaken for an in-loop fit.
func (s *Strategy) TheoreticalPerformance(ctx context.Context, optFns ...func(o *EvalOptions)) (model.Record, error) {
	opts := EvalOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	trainLoader, err := s.dm.TrainLoader()
	if err != nil {
		return nil, err
	}
	if err := s.train(ctx, trainLoader); err != nil {
		return nil, err
	}

	result, err := s.test(ctx, FullKey, opts.TestLoader)
	if err != nil {
		return nil, err
	}

	// Hit ratio is undefined for the full fit: nothing was queried.
	if _, ok := s.dm.TopUnlabelled(); ok {
		result[HitRatioMetric] = math.NaN()
	}

	s.tracker.recordFull(result)
	s.model.Reset()

	return result.Clone(), nil
}

// CurrentPerformance evaluates the model on the current labelled set,
// training first if no fitted state is held. The fitted state is always
// reset before returning. When an oracle top-informative set is configured,
// the hit ratio of the supplied query is recorded (NaN without a query).
func (s *Strategy) CurrentPerformance(ctx context.Context, optFns ...func(o *EvalOptions)) (model.Record, error) {
	opts := EvalOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if !s.model.Fitted() {
		labelled, err := s.dm.LabelledLoader()
		if err != nil {
			return nil, err
		}
		if err := s.train(ctx, labelled); err != nil {
			return nil, err
		}
	}

	result, err := s.test(ctx, strconv.Itoa(s.iteration), opts.TestLoader)

	// Reset regardless of the test outcome so a stale fit never leaks
	// into the next measurement.
	s.model.Reset()

	if err != nil {
		return nil, err
	}

	if _, ok := s.dm.TopUnlabelled(); ok {
		result[HitRatioMetric] = math.NaN()
		if opts.Query != nil {
			ratio, _ := s.dm.HitRatio(opts.Query)
			result[HitRatioMetric] = ratio
		}
	}

	return result, nil
}

// Step runs one selection step: it delegates to the configured Selector and
// validates the selection contract (exact count, distinct indices, all
// drawn from the unlabelled pool). The partition is not mutated.
func (s *Strategy) Step(ctx context.Context, numAnnotate int) ([]int, error) {
	start := time.Now()

	selected, err := s.step(ctx, numAnnotate)
	s.metrics.RecordStep(numAnnotate, time.Since(start), err)
	s.logger.LogStep(ctx, s.selectorName(), numAnnotate, len(selected), err)

	return selected, err
}

func (s *Strategy) step(ctx context.Context, numAnnotate int) ([]int, error) {
	if s.selector == nil {
		return nil, ErrNoSelector
	}

	unlabelled := s.dm.UnlabelledIndices()
	if numAnnotate <= 0 || numAnnotate > len(unlabelled) {
		return nil, fmt.Errorf("%w: requested %d of %d", ErrInvalidNumAnnotate, numAnnotate, len(unlabelled))
	}

	selected, err := s.selector.Select(ctx, s, numAnnotate)
	if err != nil {
		return nil, fmt.Errorf("relational: selector %q: %w", s.selectorName(), err)
	}

	if err := s.validateSelection(selected, numAnnotate); err != nil {
		return nil, err
	}

	return selected, nil
}

func (s *Strategy) validateSelection(selected []int, numAnnotate int) error {
	fail := func(reason string) error {
		return &SelectionContractError{
			Selector:  s.selectorName(),
			Requested: numAnnotate,
			Returned:  len(selected),
			Reason:    reason,
		}
	}

	if len(selected) != numAnnotate {
		return fail("wrong selection count")
	}

	seen := make(map[int]struct{}, len(selected))
	for _, i := range selected {
		if _, dup := seen[i]; dup {
			return fail(fmt.Sprintf("duplicate index %d", i))
		}
		seen[i] = struct{}{}

		if !s.dm.IsUnlabelled(i) {
			return fail(fmt.Sprintf("index %d is not in the unlabelled pool", i))
		}
	}

	return nil
}

// Update moves the given indices from the unlabelled to the labelled pool,
// after delegating to the oracle when one is supplied. The iteration
// counter increments by exactly one and every index receives one
// provenance entry tagged with UpdateOptions.Tag.
func (s *Strategy) Update(ctx context.Context, indices []int, optFns ...func(o *UpdateOptions)) error {
	start := time.Now()
	opts := UpdateOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	err := s.update(ctx, indices, opts)
	s.metrics.RecordUpdate(len(indices), time.Since(start), err)
	s.logger.LogUpdate(ctx, s.iteration, len(s.dm.LabelledIndices()), len(s.dm.UnlabelledIndices()), s.dm.PercentageLabelled(), err)

	return err
}

func (s *Strategy) update(ctx context.Context, indices []int, opts UpdateOptions) error {
	if opts.Oracle != nil {
		if err := opts.Oracle.UpdateDataset(ctx, s.dm, indices); err != nil {
			return fmt.Errorf("relational: oracle update: %w", err)
		}
	}

	if err := s.UpdateAnnotations(indices); err != nil {
		return err
	}

	s.iteration++
	s.tracker.logLabelledBy(indices, opts.Tag)

	return nil
}

// UpdateAnnotations moves indices to the labelled pool with no further
// bookkeeping: a pure passthrough to the data manager.
func (s *Strategy) UpdateAnnotations(indices []int) error {
	return s.dm.UpdateLabels(indices)
}

// Run executes the full active-learning loop: while the unlabelled pool is
// non-empty, select numAnnotate observations, record performance for the
// pre-update iteration (with the selection as the hit-ratio query), then
// apply the annotation update tagged with that iteration number. The loop
// stops on pool exhaustion or the optional iteration cap; either way a
// final retrain and measurement is recorded at the final iteration key.
//
// When RunOptions.ReturnQueryHistory is set, the selections are returned
// keyed by the 1-based loop counter.
func (s *Strategy) Run(ctx context.Context, numAnnotate int, optFns ...func(o *RunOptions)) (map[int][]int, error) {
	opts := RunOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var queryHistory map[int][]int
	if opts.ReturnQueryHistory {
		queryHistory = make(map[int][]int)
	}

	loopCount := 0
	for len(s.dm.UnlabelledIndices()) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loopCount++

		remaining := len(s.dm.UnlabelledIndices())
		selected, err := s.Step(ctx, min(numAnnotate, remaining))
		if err != nil {
			return nil, err
		}
		if opts.ReturnQueryHistory {
			queryHistory[loopCount] = selected
		}

		// Performance for iteration i reflects the state before the
		// update that defines iteration i+1.
		result, err := s.CurrentPerformance(ctx, func(o *EvalOptions) {
			o.TestLoader = opts.TestLoader
			o.Query = selected
		})
		if err != nil {
			return nil, err
		}
		s.tracker.recordIteration(s.iteration, result)

		if err := s.Update(ctx, selected, func(o *UpdateOptions) {
			o.Oracle = opts.Oracle
			o.Tag = strconv.Itoa(s.iteration)
		}); err != nil {
			return nil, err
		}

		if opts.NumIterations > 0 && loopCount == opts.NumIterations {
			break
		}
	}

	// Final retrain on the latest labelled set and a last measurement at
	// the final iteration key (no query, hit ratio undefined).
	labelled, err := s.dm.LabelledLoader()
	if err != nil {
		return nil, err
	}
	if err := s.train(ctx, labelled); err != nil {
		return nil, err
	}

	result, err := s.CurrentPerformance(ctx, func(o *EvalOptions) {
		o.TestLoader = opts.TestLoader
	})
	if err != nil {
		return nil, err
	}
	s.tracker.recordIteration(s.iteration, result)

	if opts.ReturnQueryHistory {
		return queryHistory, nil
	}
	return nil, nil
}

// PerformanceHistory returns the tabular performance history: one row per
// recorded iteration in ascending order. The column set is anchored to the
// theoretical-benchmark record when present.
func (s *Strategy) PerformanceHistory() *Table {
	return s.tracker.history(s.iteration)
}

// Performances returns a copy of every performance record, keyed by the
// iteration number as a string plus the "full" sentinel.
func (s *Strategy) Performances() map[string]model.Record {
	return s.tracker.performances()
}

// LabelledBy returns a copy of the labelling provenance: dataset index to
// the tag that caused it to become labelled.
func (s *Strategy) LabelledBy() map[int]string {
	out := make(map[int]string, len(s.tracker.labelledBy))
	for i, tag := range s.tracker.labelledBy {
		out[i] = tag
	}
	return out
}

// Iteration returns the number of completed annotation updates.
func (s *Strategy) Iteration() int {
	return s.iteration
}

// DatasetSize returns the total dataset size.
func (s *Strategy) DatasetSize() int {
	return s.dm.Len()
}

// PercentageLabelled returns the labelled share of the train split in
// percent.
func (s *Strategy) PercentageLabelled() float64 {
	return s.dm.PercentageLabelled()
}

// LabelledIndices returns the labelled train indices in ascending order.
func (s *Strategy) LabelledIndices() []int {
	return s.dm.LabelledIndices()
}

// UnlabelledIndices returns the unlabelled train indices in ascending
// order.
func (s *Strategy) UnlabelledIndices() []int {
	return s.dm.UnlabelledIndices()
}

// LabelledLoader returns a loader over the labelled pool.
func (s *Strategy) LabelledLoader() (*dataset.Loader, error) {
	return s.dm.LabelledLoader()
}

// UnlabelledLoader returns a deterministic loader over the unlabelled pool.
func (s *Strategy) UnlabelledLoader() (*dataset.Loader, error) {
	return s.dm.UnlabelledLoader()
}

// TrainLoader returns a loader over the full train split.
func (s *Strategy) TrainLoader() (*dataset.Loader, error) {
	return s.dm.TrainLoader()
}

// ValidationLoader returns a loader over the validation split.
func (s *Strategy) ValidationLoader() (*dataset.Loader, error) {
	return s.dm.ValidationLoader()
}

// TestLoader returns a loader over the test split.
func (s *Strategy) TestLoader() (*dataset.Loader, error) {
	return s.dm.TestLoader()
}

// Model returns the trained model under control of the engine.
func (s *Strategy) Model() model.Trainable {
	return s.model
}

// DataManager returns the data manager owning the partition.
func (s *Strategy) DataManager() *datamanager.Manager {
	return s.dm
}

func (s *Strategy) selectorName() string {
	if s.selector == nil {
		return "none"
	}
	return s.selector.Name()
}

// String returns a human-readable experiment summary.
func (s *Strategy) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Strategy: %s\n", s.selectorName())
	fmt.Fprintf(&b, "DataManager: %s\n", s.dm)
	fmt.Fprintf(&b, "Model: %s\n", s.model.Description())
	fmt.Fprintf(&b, "Size of Dataset: %d\n", s.DatasetSize())
	fmt.Fprintf(&b, "Percentage of Dataset Labelled for Model: %.3f\n", s.PercentageLabelled())
	if s.tracker.full != nil {
		fmt.Fprintf(&b, "Theoretical performance: %v\n", s.tracker.full)
	}
	b.WriteString("Performance history\n")
	b.WriteString(s.PerformanceHistory().String())

	return b.String()
}

// train fits the model on the given loader plus the validation split,
// recording duration and outcome.
func (s *Strategy) train(ctx context.Context, loader *dataset.Loader) error {
	validation, err := s.dm.ValidationLoader()
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.model.Train(ctx, loader, validation)
	s.metrics.RecordTrain(time.Since(start), err)
	s.logger.LogTrain(ctx, loader.Len(), err)

	if err != nil {
		return fmt.Errorf("relational: train: %w", err)
	}
	return nil
}

// test evaluates the model on the supplied loader, falling back to the
// data manager's test split.
func (s *Strategy) test(ctx context.Context, key string, loader *dataset.Loader) (model.Record, error) {
	if loader == nil {
		var err error
		loader, err = s.dm.TestLoader()
		if err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result, err := s.model.Test(ctx, loader)
	s.metrics.RecordEvaluate(time.Since(start), err)
	s.logger.LogEvaluate(ctx, key, len(result), err)

	if err != nil {
		return nil, fmt.Errorf("relational: test: %w", err)
	}
	// A nil record with a nil error is a legal Test return.
	if result == nil {
		result = model.Record{}
	}
	return result, nil
}
