package brv_test

import (
	"errors"
	"testing"

	"github.com/preesm/spider2-sub007/brv"
	"github.com/preesm/spider2-sub007/expr"
	"github.com/preesm/spider2-sub007/param"
	"github.com/preesm/spider2-sub007/pisdf"
)

func lit(v int64) expr.Expression { return expr.New([]expr.Token{expr.Lit(v)}) }

func newRateLookup(t *testing.T, g *pisdf.Graph) brv.RateLookup {
	t.Helper()
	tab, err := param.NewTable(g, nil)
	if err != nil {
		t.Fatalf("param.NewTable: %v", err)
	}
	return brv.RateLookup{Table: tab}
}

// Scenario 1 of spec.md §8: A outputs rate 2, B inputs rate 3 -> BRV (A:3, B:2).
func TestSolve_ProducerConsumer2to3(t *testing.T) {
	g := pisdf.NewGraph("g")
	a := g.AddVertex(&pisdf.Vertex{Name: "A"})
	b := g.AddVertex(&pisdf.Vertex{Name: "B"})
	if _, err := g.AddEdge(pisdf.VertexRef{VertexIx: a}, pisdf.VertexRef{VertexIx: b}, lit(2), lit(3), nil); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	q, err := brv.Solve(g, newRateLookup(t, g))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q[a] != 3 || q[b] != 2 {
		t.Errorf("q = %v, want A:3 B:2", q)
	}
}

func TestSolve_Inconsistent(t *testing.T) {
	g := pisdf.NewGraph("g")
	a := g.AddVertex(&pisdf.Vertex{Name: "A"})
	b := g.AddVertex(&pisdf.Vertex{Name: "B"})
	c := g.AddVertex(&pisdf.Vertex{Name: "C"})
	// A -> B at 1:1 forces q(A)==q(B).
	if _, err := g.AddEdge(pisdf.VertexRef{VertexIx: a}, pisdf.VertexRef{VertexIx: b}, lit(1), lit(1), nil); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	// A -> C at 1:1 via a second port forces q(A)==q(C) too...
	if _, err := g.AddEdge(pisdf.VertexRef{VertexIx: a, PortIx: 1}, pisdf.VertexRef{VertexIx: c}, lit(1), lit(1), nil); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	// ...but B -> C at 2:1 contradicts q(B)==q(C).
	if _, err := g.AddEdge(pisdf.VertexRef{VertexIx: b}, pisdf.VertexRef{VertexIx: c, PortIx: 1}, lit(2), lit(1), nil); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	_, err := brv.Solve(g, newRateLookup(t, g))
	if !errors.Is(err, brv.ErrPipelineInconsistent) {
		t.Errorf("want ErrPipelineInconsistent, got %v", err)
	}
}

func TestSolve_ZeroRateDisablesVertex(t *testing.T) {
	g := pisdf.NewGraph("g")
	a := g.AddVertex(&pisdf.Vertex{Name: "A"})
	b := g.AddVertex(&pisdf.Vertex{Name: "B"})
	if _, err := g.AddEdge(pisdf.VertexRef{VertexIx: a}, pisdf.VertexRef{VertexIx: b}, lit(0), lit(1), nil); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	q, err := brv.Solve(g, newRateLookup(t, g))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q[a] != 0 {
		t.Errorf("q[A] = %d, want 0 (disabled by zero rate)", q[a])
	}
}

func TestSolve_DynamicParameterRate(t *testing.T) {
	g := pisdf.NewGraph("g")
	g.AddParameter(&pisdf.Parameter{Name: "P", Kind: pisdf.ParamDynamic})
	a := g.AddVertex(&pisdf.Vertex{Name: "A"})
	b := g.AddVertex(&pisdf.Vertex{Name: "B"})
	rateP := expr.New([]expr.Token{expr.Param(0)})
	if _, err := g.AddEdge(pisdf.VertexRef{VertexIx: a}, pisdf.VertexRef{VertexIx: b}, rateP, lit(1), nil); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	tab, err := param.NewTable(g, nil)
	if err != nil {
		t.Fatalf("param.NewTable: %v", err)
	}
	rl := brv.RateLookup{Table: tab}

	if _, err := brv.Solve(g, rl); err == nil {
		t.Errorf("expected an error while P is unresolved")
	}

	if err := tab.Set(0, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	q, err := brv.Solve(g, rl)
	if err != nil {
		t.Fatalf("unexpected error once P=0: %v", err)
	}
	if q[a] != 0 {
		t.Errorf("q[A] = %d, want 0 once P=0", q[a])
	}
}
