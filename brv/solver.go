package brv

import (
	"fmt"
	"math/big"

	"github.com/preesm/spider2-sub007/expr"
	"github.com/preesm/spider2-sub007/param"
	"github.com/preesm/spider2-sub007/pisdf"
)

// RateLookup resolves the rate expression of one (vertex, port) on one
// side (source or sink) to an integer, given the firing's parameter
// table. Interfaces resolve through a distinct path supplied by the
// caller (spec.md §4.3: "Interfaces contribute boundary equations using
// the enclosing firing's outer rate") via InterfaceOuterRate.
type RateLookup struct {
	Table *param.Table
	// InterfaceOuterRate, if non-nil, overrides the rate used for an
	// EXTERN_IN/EXTERN_OUT vertex with the enclosing firing's outer rate
	// instead of the port expression declared inside the subgraph.
	InterfaceOuterRate func(vertexIx int) (int64, bool)
}

// Rate resolves the rate of ref's port (output=true for a source/output
// port, false for a sink/input port), exported so other components (e.g.
// package dependency) that need the exact same resolution rule don't
// reimplement it.
func (rl RateLookup) Rate(g *pisdf.Graph, ref pisdf.VertexRef, output bool) (int64, error) {
	return rl.portRate(g, ref, output)
}

func (rl RateLookup) portRate(g *pisdf.Graph, ref pisdf.VertexRef, output bool) (int64, error) {
	v := g.Vertices[ref.VertexIx]
	if (v.Kind == pisdf.KindExternIn || v.Kind == pisdf.KindExternOut) && rl.InterfaceOuterRate != nil {
		if r, ok := rl.InterfaceOuterRate(ref.VertexIx); ok {
			return r, nil
		}
	}
	var ports []pisdf.Port
	if output {
		ports = v.Output
	} else {
		ports = v.Inputs
	}
	if ref.PortIx < 0 || ref.PortIx >= len(ports) {
		return 0, fmt.Errorf("%w: vertex %q port %d", pisdf.ErrUnknownPort, v.Name, ref.PortIx)
	}
	lookup := func(ix int) (int64, error) { return rl.Table.Value(ix) }
	v2, err := expr.Evaluate(ports[ref.PortIx].Rate, lookup)
	if err != nil && err != expr.ErrEvalOverflow {
		return 0, fmt.Errorf("%w: %v", ErrPipelineInconsistent, err)
	}
	return v2, nil
}

// ratio is a vertex's firing count relative to an arbitrary component
// reference vertex, held as an exact fraction until the whole component
// has been walked.
type ratio struct {
	set bool
	val *big.Rat
}

type edgeRates struct {
	edge          *pisdf.Edge
	srcRate       int64
	snkRate       int64
}

// Solve computes the repetition vector of g: q[i] is the number of
// firings of g.Vertices[i]. Determinism: edges are walked in declaration
// order (spec.md §4.3 "tie-break by vertex declaration order"), so equal
// inputs always produce the same q. A vertex touching an edge whose rate
// evaluates to zero on its own side collapses out of the BRV (q=0) and
// is disabled, per spec.md §4.3.
func Solve(g *pisdf.Graph, rl RateLookup) ([]int64, error) {
	n := len(g.Vertices)
	disabled := make([]bool, n)

	rated := make([]edgeRates, len(g.Edges))
	for i, e := range g.Edges {
		srcRate, err := rl.portRate(g, e.Source, true)
		if err != nil {
			return nil, err
		}
		snkRate, err := rl.portRate(g, e.Sink, false)
		if err != nil {
			return nil, err
		}
		rated[i] = edgeRates{edge: e, srcRate: srcRate, snkRate: snkRate}
		if srcRate == 0 {
			disabled[e.Source.VertexIx] = true
		}
		if snkRate == 0 {
			disabled[e.Sink.VertexIx] = true
		}
	}

	adj := make(map[int][]int, n) // vertex -> indices into rated
	for i, r := range rated {
		if disabled[r.edge.Source.VertexIx] || disabled[r.edge.Sink.VertexIx] {
			continue
		}
		if r.edge.Source.VertexIx == r.edge.Sink.VertexIx {
			continue // self-loop imposes no ratio constraint between two distinct vertices
		}
		adj[r.edge.Source.VertexIx] = append(adj[r.edge.Source.VertexIx], i)
		adj[r.edge.Sink.VertexIx] = append(adj[r.edge.Sink.VertexIx], i)
	}

	ratios := make([]ratio, n)
	for start := 0; start < n; start++ {
		if disabled[start] || ratios[start].set {
			continue
		}
		ratios[start] = ratio{set: true, val: big.NewRat(1, 1)}
		queue := []int{start}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, ei := range adj[u] {
				r := rated[ei]
				var uRate, vRate int64
				var v int
				if r.edge.Source.VertexIx == u {
					uRate, vRate, v = r.srcRate, r.snkRate, r.edge.Sink.VertexIx
				} else {
					uRate, vRate, v = r.snkRate, r.srcRate, r.edge.Source.VertexIx
				}
				// q(src)*srcRate == q(snk)*snkRate  =>  q(v) = q(u) * rate(u-side) / rate(v-side)
				want := new(big.Rat).Mul(ratios[u].val, big.NewRat(uRate, vRate))
				if ratios[v].set {
					if ratios[v].val.Cmp(want) != 0 {
						return nil, fmt.Errorf("%w: vertex %q", ErrPipelineInconsistent, g.Vertices[v].Name)
					}
					continue
				}
				ratios[v] = ratio{set: true, val: want}
				queue = append(queue, v)
			}
		}
	}

	q, err := materialize(g, ratios, disabled)
	if err != nil {
		return nil, err
	}
	if err := checkBalance(g, rated, q); err != nil {
		return nil, err
	}
	return q, nil
}

// checkBalance re-verifies, with the final integer q, that every edge
// satisfies q(src)*srcRate == q(snk)*snkRate; this catches a disconnected
// component whose own internal ratios are self-consistent but whose
// total flow disagrees with a sibling component through an edge that
// materialize's component-local solve could not see (defense in depth:
// the BFS above already enforces this per visited edge).
func checkBalance(g *pisdf.Graph, rated []edgeRates, q []int64) error {
	for _, r := range rated {
		if q[r.edge.Source.VertexIx] == 0 || q[r.edge.Sink.VertexIx] == 0 {
			continue
		}
		lhs := q[r.edge.Source.VertexIx] * r.srcRate
		rhs := q[r.edge.Sink.VertexIx] * r.snkRate
		if lhs != rhs {
			return fmt.Errorf("%w: edge %q -> %q unbalanced (%d != %d)", ErrPipelineInconsistent,
				g.Vertices[r.edge.Source.VertexIx].Name, g.Vertices[r.edge.Sink.VertexIx].Name, lhs, rhs)
		}
	}
	return nil
}

// materialize clears denominators (LCM) then divides by the GCD of all
// numerators, yielding the least positive integer solution.
func materialize(g *pisdf.Graph, ratios []ratio, disabled []bool) ([]int64, error) {
	lcm := big.NewInt(1)
	any := false
	for i := range ratios {
		if disabled[i] || !ratios[i].set {
			continue
		}
		any = true
		lcm = lcmBig(lcm, ratios[i].val.Denom())
	}
	if !any {
		return make([]int64, len(g.Vertices)), nil
	}

	scaled := make([]*big.Int, len(ratios))
	gcd := big.NewInt(0)
	for i := range ratios {
		if disabled[i] || !ratios[i].set {
			continue
		}
		v := new(big.Int).Mul(ratios[i].val.Num(), new(big.Int).Div(lcm, ratios[i].val.Denom()))
		scaled[i] = v
		gcd = new(big.Int).GCD(nil, nil, gcd, v)
	}
	if gcd.Sign() == 0 {
		gcd = big.NewInt(1)
	}

	q := make([]int64, len(g.Vertices))
	for i := range ratios {
		if disabled[i] || !ratios[i].set {
			q[i] = 0
			continue
		}
		v := new(big.Int).Div(scaled[i], gcd)
		if !v.IsInt64() || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: vertex %q firing count out of range", ErrPipelineInconsistent, g.Vertices[i].Name)
		}
		q[i] = v.Int64()
	}
	return q, nil
}

func lcmBig(a, b *big.Int) *big.Int {
	if a.Sign() == 0 || b.Sign() == 0 {
		return big.NewInt(0)
	}
	gcd := new(big.Int).GCD(nil, nil, a, b)
	return new(big.Int).Div(new(big.Int).Mul(a, b), gcd)
}
