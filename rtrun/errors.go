package rtrun

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a fatal runtime error (spec.md §7 "Error kinds").
type Kind uint8

const (
	PipelineInconsistent Kind = iota
	ParamNotReady
	EvalError
	EvalOverflow
	InterfaceMisconnected
	NoEligiblePE
	OutOfStack
	PoolExhausted
	KernelFailure
	TransportError
)

// String renders the kind the way spec.md §7 names it.
func (k Kind) String() string {
	switch k {
	case PipelineInconsistent:
		return "PIPELINE_INCONSISTENT"
	case ParamNotReady:
		return "PARAM_NOT_READY"
	case EvalError:
		return "EVAL_ERROR"
	case EvalOverflow:
		return "EVAL_OVERFLOW"
	case InterfaceMisconnected:
		return "INTERFACE_MISCONNECTED"
	case NoEligiblePE:
		return "NO_ELIGIBLE_PE"
	case OutOfStack:
		return "OUT_OF_STACK"
	case PoolExhausted:
		return "POOL_EXHAUSTED"
	case KernelFailure:
		return "KERNEL_FAILURE"
	case TransportError:
		return "TRANSPORT_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for the ten error kinds of spec.md §7, one per Kind, each
// wrapped with details (offending vertex, PE, etc.) via %w at the call
// site and matched back with errors.Is/errors.As.
var (
	ErrPipelineInconsistent = errors.New(PipelineInconsistent.String())
	ErrParamNotReady        = errors.New(ParamNotReady.String())
	ErrEvalError            = errors.New(EvalError.String())
	ErrEvalOverflow         = errors.New(EvalOverflow.String())
	ErrInterfaceMisconnected = errors.New(InterfaceMisconnected.String())
	ErrNoEligiblePE         = errors.New(NoEligiblePE.String())
	ErrOutOfStack           = errors.New(OutOfStack.String())
	ErrPoolExhausted        = errors.New(PoolExhausted.String())
	ErrKernelFailure        = errors.New(KernelFailure.String())
	ErrTransportError       = errors.New(TransportError.String())
)

// FatalError pairs a Kind with the offending detail (spec.md §7
// "Propagation policy: expression errors in rate resolution surface as
// PIPELINE_INCONSISTENT with the offending vertex"); all core errors are
// fatal to the current iteration.
type FatalError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Detail == "" {
		return "rtrun: " + e.Kind.String()
	}
	return "rtrun: " + e.Kind.String() + ": " + e.Detail
}

// Unwrap exposes the wrapped cause, if any, so errors.As still reaches it
// through a FatalError.
func (e *FatalError) Unwrap() error { return e.Err }

// Is reports whether target is this FatalError's Kind sentinel, so
// errors.Is(err, rtrun.ErrNoEligiblePE) works regardless of whether a
// cause was attached.
func (e *FatalError) Is(target error) bool {
	switch e.Kind {
	case PipelineInconsistent:
		return target == ErrPipelineInconsistent
	case ParamNotReady:
		return target == ErrParamNotReady
	case EvalError:
		return target == ErrEvalError
	case EvalOverflow:
		return target == ErrEvalOverflow
	case InterfaceMisconnected:
		return target == ErrInterfaceMisconnected
	case NoEligiblePE:
		return target == ErrNoEligiblePE
	case OutOfStack:
		return target == ErrOutOfStack
	case PoolExhausted:
		return target == ErrPoolExhausted
	case KernelFailure:
		return target == ErrKernelFailure
	case TransportError:
		return target == ErrTransportError
	default:
		return false
	}
}

// Fatal builds a FatalError of kind with detail, attaching a stack trace
// to cause via github.com/pkg/errors — every fatal error crosses the
// orchestrator boundary (spec.md §7 "all core errors are fatal to the
// current iteration and propagate to the orchestrator, which logs and
// returns failure"), and a stack trace captured at the point of failure
// is what makes that log useful. cause may be nil.
func Fatal(kind Kind, detail string, cause error) *FatalError {
	if cause != nil {
		cause = pkgerrors.WithStack(cause)
	}
	return &FatalError{Kind: kind, Detail: detail, Err: cause}
}
