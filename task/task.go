// Package task implements the runtime task model of spec.md §3/§4.7: a
// schedulable unit of work with two origin specializations (a SRDAG
// vertex firing, or a direct PiSDF firing on the single-rate-less path),
// plus the two synchronization-only flavors supplemented from
// libspider/graphs/sched/{MergeSchedVertex.cpp,SyncSchedVertex.h} for the
// no-sync FIFO allocator's rewrite rule (§4.9).
package task

import (
	"errors"
	"fmt"

	"github.com/preesm/spider2-sub007/archi"
	"github.com/preesm/spider2-sub007/expr"
	"github.com/preesm/spider2-sub007/pisdf"
)

// ErrNoTiming is returned by TimingOnPE when the task declares no timing
// expression for the requested PE.
var ErrNoTiming = errors.New("task: no timing expression for this PE")

// Kind distinguishes a task's origin and role. spec.md §3 names two
// specializations (task-on-SRDAG-vertex, task-on-firing); KindSync and
// KindMerge are the supplemented synchronization-only flavors rather than
// a parallel class hierarchy, per Design Notes.
type Kind uint8

const (
	KindSRDAGVertex Kind = iota
	KindFiring
	KindSync
	KindMerge
)

// String renders the kind for logs.
func (k Kind) String() string {
	switch k {
	case KindSRDAGVertex:
		return "SRDAG_VERTEX"
	case KindFiring:
		return "FIRING"
	case KindSync:
		return "SYNC"
	case KindMerge:
		return "MERGE"
	default:
		return "UNKNOWN"
	}
}

// FIFODescriptor is one of a task's input/output FIFO handles, resolved
// through the allocator (spec.md §4.10 "input FIFO handles from its
// predecessors ..., output FIFO handles from its own allocations").
type FIFODescriptor struct {
	VirtualAddress uint64
	Size           uint32
	Offset         uint32
}

// Task is one schedulable unit (spec.md §3). Exactly one of
// SRDAGVertexIx/PiSDFVertexIx is meaningful, selected by Kind.
type Task struct {
	Kind Kind

	// SRDAGVertexIx identifies the originating srdag.Vertex for
	// KindSRDAGVertex tasks.
	SRDAGVertexIx int
	// PiSDFVertexIx/FiringIx identify the originating (vertex, firing)
	// pair for KindFiring tasks (the single-rate-less path).
	PiSDFVertexIx int
	FiringIx      int64

	Name string

	Constraint     pisdf.PEConstraint
	TimingExprByPE map[string]expr.Expression

	Inputs  []FIFODescriptor
	Outputs []FIFODescriptor

	// Scheduling/mapping outputs, populated by package sched/mapper.
	PE        *archi.PE
	StartTime int64
	EndTime   int64
}

// IsMappableOnPE reports whether pe is an eligible mapping target: it
// must be enabled and allowed by the task's PE constraint (spec.md §4.8
// "task.isMappableOnPE(pe) ∧ pe.enabled()").
func (t *Task) IsMappableOnPE(pe *archi.PE) bool {
	return pe != nil && pe.Enabled() && t.Constraint.Allows(pe.Name)
}

// TimingOnPE evaluates the task's timing expression for pe using lookup
// to resolve any parameter references (spec.md §4.8
// "task.timing_on_pe(pe)").
func (t *Task) TimingOnPE(pe *archi.PE, lookup expr.Lookup) (int64, error) {
	e, ok := t.TimingExprByPE[pe.Name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", pe.Name, ErrNoTiming)
	}
	return expr.Evaluate(e, lookup)
}
