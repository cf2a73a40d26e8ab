package pisdf_test

import (
	"errors"
	"testing"

	"github.com/preesm/spider2-sub007/expr"
	"github.com/preesm/spider2-sub007/pisdf"
)

func literalRate(v int64) expr.Expression {
	return expr.New([]expr.Token{expr.Lit(v)})
}

func TestGraph_AddEdge_ProducerConsumer(t *testing.T) {
	g := pisdf.NewGraph("top")
	a := g.AddVertex(&pisdf.Vertex{Name: "A", Kind: pisdf.KindNormal})
	b := g.AddVertex(&pisdf.Vertex{Name: "B", Kind: pisdf.KindNormal})

	_, err := g.AddEdge(
		pisdf.VertexRef{VertexIx: a, PortIx: 0},
		pisdf.VertexRef{VertexIx: b, PortIx: 0},
		literalRate(2), literalRate(3), nil,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Vertices[a].Output) != 1 || len(g.Vertices[b].Inputs) != 1 {
		t.Fatalf("expected one port on each side")
	}
}

func TestGraph_AddEdge_UnknownVertex(t *testing.T) {
	g := pisdf.NewGraph("top")
	_, err := g.AddEdge(
		pisdf.VertexRef{VertexIx: 5}, pisdf.VertexRef{VertexIx: 0},
		literalRate(1), literalRate(1), nil,
	)
	if !errors.Is(err, pisdf.ErrUnknownVertex) {
		t.Errorf("want ErrUnknownVertex, got %v", err)
	}
}

func TestGraph_AddEdge_DensePortViolation(t *testing.T) {
	g := pisdf.NewGraph("top")
	a := g.AddVertex(&pisdf.Vertex{Name: "A"})
	b := g.AddVertex(&pisdf.Vertex{Name: "B"})
	_, err := g.AddEdge(
		pisdf.VertexRef{VertexIx: a, PortIx: 3}, pisdf.VertexRef{VertexIx: b, PortIx: 0},
		literalRate(1), literalRate(1), nil,
	)
	if !errors.Is(err, pisdf.ErrDensePortViolation) {
		t.Errorf("want ErrDensePortViolation, got %v", err)
	}
}

func TestGraph_Validate_InterfaceMisconnected(t *testing.T) {
	g := pisdf.NewGraph("sub")
	normal := g.AddVertex(&pisdf.Vertex{Name: "notAnInterface", Kind: pisdf.KindNormal})
	g.AddInputInterface(normal)
	if err := g.Validate(); !errors.Is(err, pisdf.ErrInterfaceMisconnected) {
		t.Errorf("want ErrInterfaceMisconnected, got %v", err)
	}
}

func TestGraph_Validate_OK(t *testing.T) {
	g := pisdf.NewGraph("sub")
	in := g.AddVertex(&pisdf.Vertex{Name: "in", Kind: pisdf.KindExternIn})
	g.AddInputInterface(in)
	if err := g.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPEConstraint_Whitelist(t *testing.T) {
	c := pisdf.PEConstraint{Whitelist: []string{"PE0", "PE1"}}
	if !c.Allows("PE0") || c.Allows("PE2") {
		t.Errorf("whitelist semantics broken")
	}
}

func TestPEConstraint_Blacklist(t *testing.T) {
	c := pisdf.PEConstraint{Blacklist: []string{"PE0"}}
	if c.Allows("PE0") || !c.Allows("PE1") {
		t.Errorf("blacklist semantics broken")
	}
}
