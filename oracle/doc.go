// Package oracle defines the annotation-source extension point: anything
// that can reveal ground-truth labels for selected indices before the
// engine applies its bookkeeping update.
package oracle
