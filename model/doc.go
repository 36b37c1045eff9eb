// Package model defines the trainable-model contract the strategy engine
// drives, plus a runnable k-nearest-neighbour reference model.
//
// The fitted state is explicit: a model is either untrained or holds a
// fitted snapshot (State), and the strategy engine is the only caller that
// resets it across measurement boundaries.
package model
