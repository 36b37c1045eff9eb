// Package datamanager tracks the labelled/unlabelled partition of a dataset
// and produces the loaders the strategy engine consumes.
//
// The train split is partitioned at all times into two disjoint Roaring
// bitmaps, labelled (L) and unlabelled (U), with L ∪ U = train. Indices move
// from U to L exactly once, via UpdateLabels.
package datamanager
