// Package dependency implements the dependency iterator of spec.md §4.4:
// for a sink (vertex, firing, input port), the lazy, restartable sequence
// of (source vertex, source firing, source port, token range) tuples it
// depends on.
package dependency

import (
	"errors"
	"fmt"

	"github.com/preesm/spider2-sub007/brv"
	"github.com/preesm/spider2-sub007/expr"
	"github.com/preesm/spider2-sub007/pisdf"
)

// ErrNoProducer is returned when the sink port has no incoming edge.
var ErrNoProducer = errors.New("dependency: sink port has no producing edge")

// ErrDelayExceedsProduction is returned when a delay's resolved value
// exceeds the source's total per-iteration production; carrying a delay
// across more than one steady-state iteration is out of scope for this
// core (see DESIGN.md).
var ErrDelayExceedsProduction = errors.New("dependency: delay larger than source production is unsupported")

// Dependency names one producer contribution to a sink firing's input
// window.
type Dependency struct {
	// FromDelayStore is true when these tokens come from the delay's
	// setter firing (or, if no setter is declared, from persistent
	// external storage — SourceVertexIx is -1 in that case).
	FromDelayStore bool

	SourceVertexIx int
	SourceFiring   int64
	SourcePortIx   int

	// TokenStart/TokenCount index into the source firing's own
	// production window (TokenStart=0 is that firing's first token).
	TokenStart int64
	TokenCount int64
}

// InterfaceResolver lets a caller (package firing, which alone knows the
// firing tree) resolve an INPUT/OUTPUT subgraph interface dependency by
// crossing into the parent graph's firing, per spec.md §4.4's interface
// rules. Iterator calls it whenever the sink vertex is an interface.
type InterfaceResolver func(direction pisdf.InterfaceDirection, vertexIx int, firing int64) ([]Dependency, error)

// Iterator resolves dependencies for one graph level, given its
// already-solved repetition vector and rate lookup.
type Iterator struct {
	Graph    *pisdf.Graph
	BRV      []int64
	Rates    brv.RateLookup
	Resolver InterfaceResolver
}

// Dependencies returns the complete, ordered list of producer
// contributions for sinkVertexIx's port sinkPortIx, firing sinkFiring.
// Concatenating TokenCount over the returned slice always exactly equals
// the sink's per-firing input rate (spec.md §8 completeness invariant).
func (it Iterator) Dependencies(sinkVertexIx int, sinkFiring int64, sinkPortIx int) ([]Dependency, error) {
	v := it.Graph.Vertices[sinkVertexIx]
	if v.Kind == pisdf.KindExternIn || v.Kind == pisdf.KindExternOut {
		if it.Resolver == nil {
			return nil, fmt.Errorf("dependency: vertex %q is an interface but no InterfaceResolver was supplied", v.Name)
		}
		dir := pisdf.InterfaceInput
		if v.Kind == pisdf.KindExternOut {
			dir = pisdf.InterfaceOutput
		}
		return it.Resolver(dir, sinkVertexIx, sinkFiring)
	}

	edge := it.findProducer(sinkVertexIx, sinkPortIx)
	if edge == nil {
		return nil, fmt.Errorf("%w: vertex %q port %d", ErrNoProducer, v.Name, sinkPortIx)
	}

	snkRate, err := it.Rates.Rate(it.Graph, edge.Sink, false)
	if err != nil {
		return nil, err
	}
	srcRate, err := it.Rates.Rate(it.Graph, edge.Source, true)
	if err != nil {
		return nil, err
	}
	srcQ := it.BRV[edge.Source.VertexIx]
	srcTotal := srcQ * srcRate

	windowStart := sinkFiring * snkRate
	windowEnd := windowStart + snkRate // exclusive

	if edge.Delay == nil {
		return it.straightDeps(edge, srcRate, windowStart, windowEnd)
	}
	return it.delayedDeps(edge, srcRate, srcTotal, windowStart, windowEnd)
}

func (it Iterator) findProducer(sinkVertexIx, sinkPortIx int) *pisdf.Edge {
	for _, e := range it.Graph.Edges {
		if e.Sink.VertexIx == sinkVertexIx && e.Sink.PortIx == sinkPortIx {
			return e
		}
	}
	return nil
}

// straightDeps maps the sink's consumption window directly onto the
// source's firing-ordered production stream.
func (it Iterator) straightDeps(edge *pisdf.Edge, srcRate, windowStart, windowEnd int64) ([]Dependency, error) {
	return spansToDeps(edge.Source.VertexIx, edge.Source.PortIx, srcRate, windowStart, windowEnd), nil
}

// delayedDeps offsets the sink's window by the resolved delay value: the
// first `delayValue` global tokens come from the setter/persistent
// store, the rest map into the source's production stream starting at
// offset -delayValue (spec.md §4.4).
func (it Iterator) delayedDeps(edge *pisdf.Edge, srcRate, srcTotal, windowStart, windowEnd int64) ([]Dependency, error) {
	delayValue, err := evaluateDelay(edge.Delay, it.Rates)
	if err != nil {
		return nil, err
	}
	if delayValue > srcTotal {
		return nil, fmt.Errorf("%w: delay=%d production=%d", ErrDelayExceedsProduction, delayValue, srcTotal)
	}

	var deps []Dependency
	// Portion served from the delay store.
	storeLo := windowStart
	if storeLo < delayValue {
		hi := windowEnd
		if hi > delayValue {
			hi = delayValue
		}
		count := hi - storeLo
		if count > 0 {
			deps = append(deps, Dependency{
				FromDelayStore: true,
				SourceVertexIx: edge.Delay.SetterVertex,
				SourcePortIx:   0,
				TokenStart:     storeLo,
				TokenCount:     count,
			})
		}
	}
	// Portion served from the source's own production, shifted by -delayValue.
	prodLo := windowStart - delayValue
	prodHi := windowEnd - delayValue
	if prodHi > 0 {
		if prodLo < 0 {
			prodLo = 0
		}
		deps = append(deps, spansToDeps(edge.Source.VertexIx, edge.Source.PortIx, srcRate, prodLo, prodHi)...)
	}
	return deps, nil
}

// spansToDeps splits the global token range [lo,hi) of a rate-srcRate
// producer into per-firing contiguous Dependency entries.
func spansToDeps(vertexIx, portIx int, rate, lo, hi int64) []Dependency {
	if rate <= 0 || lo >= hi {
		return nil
	}
	var deps []Dependency
	for cur := lo; cur < hi; {
		firing := cur / rate
		firingStart := firing * rate
		firingEnd := firingStart + rate
		end := hi
		if end > firingEnd {
			end = firingEnd
		}
		deps = append(deps, Dependency{
			SourceVertexIx: vertexIx,
			SourceFiring:   firing,
			SourcePortIx:   portIx,
			TokenStart:     cur - firingStart,
			TokenCount:     end - cur,
		})
		cur = end
	}
	return deps
}

func evaluateDelay(d *pisdf.Delay, rl brv.RateLookup) (int64, error) {
	lookup := func(ix int) (int64, error) { return rl.Table.Value(ix) }
	return expr.Evaluate(d.ValueExpr, lookup)
}
