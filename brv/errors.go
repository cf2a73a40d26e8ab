// Package brv solves the repetition vector (BRV) of one PiSDF graph level
// (spec.md §4.3): the least positive integer firing count per vertex that
// keeps token production and consumption consistent.
package brv

import "errors"

// ErrPipelineInconsistent is the fatal error of spec.md §4.3/§7: the
// topology matrix for this level has no consistent positive integer
// solution (two edges disagree on a vertex's relative firing count, or a
// disconnected component has unbalanced flow on one side).
var ErrPipelineInconsistent = errors.New("brv: pipeline inconsistent")
