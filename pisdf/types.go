// Package pisdf implements the hierarchical PiSDF graph data model
// (spec.md §3): Graph, Vertex, Edge, Interface, Parameter and Delay.
//
// A Graph is built once through the in-memory builder API (§6) and is
// immutable afterwards for the lifetime of any iteration tree built on top
// of it — unlike the teacher's core.Graph, no internal locking is needed
// here: concurrent readers (firing.GraphHandler trees, the scheduler) only
// ever see a Graph after construction has finished.
package pisdf

import "github.com/preesm/spider2-sub007/expr"

// VertexKind tags the variant of a Vertex (Design Notes: "polymorphic
// vertex kinds are tagged variants, not an inheritance hierarchy").
type VertexKind uint8

const (
	KindNormal VertexKind = iota
	KindConfig
	KindFork
	KindJoin
	KindDuplicate
	KindTail
	KindHead
	KindRepeat
	KindInit
	KindEnd
	KindDelay
	KindExternIn
	KindExternOut
	KindGraph
)

// String renders the kind for logs and error messages.
func (k VertexKind) String() string {
	switch k {
	case KindNormal:
		return "NORMAL"
	case KindConfig:
		return "CONFIG"
	case KindFork:
		return "FORK"
	case KindJoin:
		return "JOIN"
	case KindDuplicate:
		return "DUPLICATE"
	case KindTail:
		return "TAIL"
	case KindHead:
		return "HEAD"
	case KindRepeat:
		return "REPEAT"
	case KindInit:
		return "INIT"
	case KindEnd:
		return "END"
	case KindDelay:
		return "DELAY"
	case KindExternIn:
		return "EXTERN_IN"
	case KindExternOut:
		return "EXTERN_OUT"
	case KindGraph:
		return "GRAPH"
	default:
		return "UNKNOWN"
	}
}

// IsExecutable reports whether firings of this kind correspond to a
// schedulable task (vs. a pure bookkeeping vertex such as an interface).
func (k VertexKind) IsExecutable() bool {
	switch k {
	case KindExternIn, KindExternOut:
		return false
	default:
		return true
	}
}

// Port is one input or output port of a Vertex: its dense index and the
// symbolic rate expression (tokens produced/consumed per firing).
type Port struct {
	Rate expr.Expression
}

// PEConstraint restricts which processing elements a Vertex's firings may
// be mapped onto. Exactly one of Whitelist/Blacklist should be set; an
// empty constraint means "mappable everywhere".
type PEConstraint struct {
	Whitelist []string // PE names; empty means "no restriction"
	Blacklist []string
}

// Allows reports whether peName is an eligible mapping target.
func (c PEConstraint) Allows(peName string) bool {
	if len(c.Whitelist) > 0 {
		for _, n := range c.Whitelist {
			if n == peName {
				return true
			}
		}
		return false
	}
	for _, n := range c.Blacklist {
		if n == peName {
			return false
		}
	}
	return true
}

// Vertex is a node of a PiSDF Graph (spec.md §3).
type Vertex struct {
	Name   string
	Kind   VertexKind
	Inputs []Port
	Output []Port

	// KernelIx identifies the user kernel for executable kinds; meaningless
	// for interfaces and pure bookkeeping vertices.
	KernelIx int

	Constraint PEConstraint
	// TimingExprByPE maps a PE name to the symbolic timing expression for
	// a firing of this vertex on that PE.
	TimingExprByPE map[string]expr.Expression

	// ConfigOutputParams lists the indices, in the enclosing Graph's
	// Parameters slice, that this CONFIG vertex sets at runtime.
	ConfigOutputParams []int

	// Subgraph is non-nil iff Kind == KindGraph.
	Subgraph *Graph
}

// Outputs returns the vertex's output ports. Named Output (not Outputs) on
// the struct field to keep Vertex{Inputs: ..., Output: ...} readable at
// call sites; the accessor keeps the public API symmetrical.
func (v *Vertex) Outputs() []Port { return v.Output }

// VertexRef names one (vertex, port) endpoint inside a single Graph.
type VertexRef struct {
	VertexIx int
	PortIx   int
}

// Delay is the per-edge initial-token store (spec.md §3).
type Delay struct {
	ValueExpr    expr.Expression
	Persistent   bool
	SetterVertex int // index into the enclosing Graph's Vertices, or -1
	GetterVertex int // index into the enclosing Graph's Vertices, or -1
}

// Edge connects a source (vertex, port) to a sink (vertex, port), with an
// optional Delay.
type Edge struct {
	Source VertexRef
	Sink   VertexRef
	Delay  *Delay
}

// ParamKind enumerates the three parameter kinds of spec.md §3.
type ParamKind uint8

const (
	ParamStatic ParamKind = iota
	ParamDynamic
	ParamInherited
)

// Parameter is a named, possibly-dynamic value resolved within a
// GraphFiring (firing.GraphFiring), never on the Graph itself.
type Parameter struct {
	Name string
	Kind ParamKind

	// Expr holds the resolution expression for ParamStatic; ignored for
	// ParamDynamic (set via ParameterMessage) and ParamInherited.
	Expr expr.Expression

	// InheritedFromParam is the parent scope's parameter index, valid only
	// for ParamInherited.
	InheritedFromParam int
}

// InterfaceDirection distinguishes an input from an output subgraph
// interface.
type InterfaceDirection uint8

const (
	InterfaceInput InterfaceDirection = iota
	InterfaceOutput
)

// Graph is a hierarchical PiSDF graph level (spec.md §3). Port indices on
// every Vertex are dense 0..n-1 by construction (enforced by AddEdge).
type Graph struct {
	Name       string
	Vertices   []*Vertex
	Edges      []*Edge
	Parameters []*Parameter

	// InputInterfaces / OutputInterfaces list, in port order, the index of
	// the KindExternIn / KindExternOut vertex realizing each subgraph port.
	InputInterfaces  []int
	OutputInterfaces []int
}
