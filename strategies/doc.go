// Package strategies provides ready-made selection policies for the
// active-learning engine: diversity sampling via relative distance,
// uncertainty sampling via least confidence, margin, and entropy, and a
// random baseline.
//
// All selectors rank the unlabelled pool most informative first and break
// score ties by ascending dataset index, so selection is deterministic for
// a given model state.
package strategies
