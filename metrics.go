package relational

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordTrain is called after each model training call.
	RecordTrain(duration time.Duration, err error)

	// RecordEvaluate is called after each performance measurement.
	RecordEvaluate(duration time.Duration, err error)

	// RecordStep is called after each selection step.
	// numAnnotate is the number of observations requested.
	RecordStep(numAnnotate int, duration time.Duration, err error)

	// RecordUpdate is called after each annotation update.
	// count is the number of indices moved to the labelled pool.
	RecordUpdate(count int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTrain(time.Duration, error)       {}
func (NoopMetricsCollector) RecordEvaluate(time.Duration, error)    {}
func (NoopMetricsCollector) RecordStep(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordUpdate(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TrainCount    atomic.Int64
	EvaluateCount atomic.Int64
	StepCount     atomic.Int64
	UpdateCount   atomic.Int64
	AnnotatedSum  atomic.Int64
	ErrorCount    atomic.Int64
}

func (c *BasicMetricsCollector) RecordTrain(_ time.Duration, err error) {
	c.TrainCount.Add(1)
	if err != nil {
		c.ErrorCount.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordEvaluate(_ time.Duration, err error) {
	c.EvaluateCount.Add(1)
	if err != nil {
		c.ErrorCount.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordStep(_ int, _ time.Duration, err error) {
	c.StepCount.Add(1)
	if err != nil {
		c.ErrorCount.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordUpdate(count int, _ time.Duration, err error) {
	c.UpdateCount.Add(1)
	if err != nil {
		c.ErrorCount.Add(1)
		return
	}
	c.AnnotatedSum.Add(int64(count))
}
