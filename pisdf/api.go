// api.go — in-memory builder API for Graph (spec.md §6: "accepted via
// in-memory builder API; no file format is mandated by the core").
package pisdf

import "github.com/preesm/spider2-sub007/expr"

// NewGraph returns an empty, named Graph ready for incremental
// construction via AddVertex/AddEdge/AddParameter.
func NewGraph(name string) *Graph {
	return &Graph{Name: name}
}

// AddVertex appends v and returns its dense index within the Graph.
func (g *Graph) AddVertex(v *Vertex) int {
	g.Vertices = append(g.Vertices, v)
	return len(g.Vertices) - 1
}

// AddParameter appends p and returns its dense index.
func (g *Graph) AddParameter(p *Parameter) int {
	g.Parameters = append(g.Parameters, p)
	return len(g.Parameters) - 1
}

// AddEdge connects source (vertex, port) to sink (vertex, port), appending
// the new port to each side's rate table if the referenced port index is
// exactly the next dense slot, or reusing it if the port was pre-declared
// (e.g. via Vertex{Inputs: make([]Port, n)}). Returns ErrUnknownVertex for
// an out-of-range vertex, ErrDensePortViolation if the sink/source port
// would be left with a gap.
func (g *Graph) AddEdge(source, sink VertexRef, sourceRate, sinkRate expr.Expression, delay *Delay) (*Edge, error) {
	src, err := g.vertexAt(source.VertexIx)
	if err != nil {
		return nil, err
	}
	snk, err := g.vertexAt(sink.VertexIx)
	if err != nil {
		return nil, err
	}
	if err := assignPort(&src.Output, source.PortIx, sourceRate); err != nil {
		return nil, err
	}
	if err := assignPort(&snk.Inputs, sink.PortIx, sinkRate); err != nil {
		return nil, err
	}
	e := &Edge{Source: source, Sink: sink, Delay: delay}
	g.Edges = append(g.Edges, e)
	return e, nil
}

// assignPort places rate at index ix in *ports, growing the slice by
// exactly one slot if ix == len(*ports) (the dense-append case), reusing
// an already-sized slot in place otherwise, and rejecting any gap.
func assignPort(ports *[]Port, ix int, rate expr.Expression) error {
	switch {
	case ix < len(*ports):
		(*ports)[ix] = Port{Rate: rate}
	case ix == len(*ports):
		*ports = append(*ports, Port{Rate: rate})
	default:
		return ErrDensePortViolation
	}
	return nil
}

func (g *Graph) vertexAt(ix int) (*Vertex, error) {
	if ix < 0 || ix >= len(g.Vertices) {
		return nil, ErrUnknownVertex
	}
	return g.Vertices[ix], nil
}

// AddInputInterface declares the next INPUT port of the Graph as realized
// by the EXTERN_IN vertex at index vertexIx, appending it in port order.
func (g *Graph) AddInputInterface(vertexIx int) {
	g.InputInterfaces = append(g.InputInterfaces, vertexIx)
}

// AddOutputInterface is the OUTPUT-side counterpart of AddInputInterface.
func (g *Graph) AddOutputInterface(vertexIx int) {
	g.OutputInterfaces = append(g.OutputInterfaces, vertexIx)
}

// Validate checks the invariants spec.md §3 requires before the Graph can
// be handed to firing.GraphHandler that AddEdge does not already enforce:
// correctly-sided interfaces. Dense ports are checked incrementally by
// AddEdge only; Validate does not re-check them.
func (g *Graph) Validate() error {
	for _, vix := range g.InputInterfaces {
		v, err := g.vertexAt(vix)
		if err != nil {
			return err
		}
		if v.Kind != KindExternIn {
			return ErrInterfaceMisconnected
		}
	}
	for _, vix := range g.OutputInterfaces {
		v, err := g.vertexAt(vix)
		if err != nil {
			return err
		}
		if v.Kind != KindExternOut {
			return ErrInterfaceMisconnected
		}
	}
	return nil
}
