// Package informativeness provides the scoring functions concrete
// strategies rank unlabelled observations with.
//
// All scorers return one score per input row, higher meaning more
// informative, so callers can rank descending and take a prefix.
package informativeness
