package pisdf

import "errors"

// ErrUnknownVertex is returned for an out-of-range vertex index.
var ErrUnknownVertex = errors.New("pisdf: unknown vertex index")

// ErrUnknownPort is returned for an out-of-range port index.
var ErrUnknownPort = errors.New("pisdf: unknown port index")

// ErrInterfaceMisconnected is the fatal configuration error of spec.md §3:
// an Interface vertex attached to the wrong side (an INPUT interface must
// attach to exactly one internal edge and one external edge through the
// parent graph; likewise, symmetrically, for OUTPUT).
var ErrInterfaceMisconnected = errors.New("pisdf: interface misconnected")

// ErrDensePortViolation is returned when AddEdge would leave a Vertex's
// input or output port indices non-dense.
var ErrDensePortViolation = errors.New("pisdf: port indices must be dense")
