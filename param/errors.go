// Package param implements the per-firing parameter table (spec.md §4.2):
// resolving STATIC parameters eagerly, INHERITED ones by walking the
// firing tree, and gating reads of DYNAMIC ones until a ParameterMessage
// has supplied their value.
package param

import "errors"

// ErrParamNotReady is the invariant of spec.md §4.2: a DYNAMIC parameter
// read before its setter config actor produced a value in this firing.
var ErrParamNotReady = errors.New("param: dynamic parameter not ready")

// ErrUnknownParam is returned for an out-of-range parameter index.
var ErrUnknownParam = errors.New("param: unknown parameter index")

// ErrNoParentScope is returned when an INHERITED parameter's table has no
// parent to walk up to.
var ErrNoParentScope = errors.New("param: inherited parameter has no parent scope")
