// Package dataset defines the dataset abstraction and the batching Loader
// used by models, scorers, and the strategy engine.
//
// A Dataset is addressed by integer index; the Loader iterates a fixed index
// subset in batches, optionally shuffled, fetching samples with bounded
// parallelism.
package dataset
