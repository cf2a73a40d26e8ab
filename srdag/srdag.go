// Package srdag implements the single-rate expansion of spec.md §4.6:
// given a PiSDF graph level and its repetition vector (package brv), it
// produces a flattened graph where every vertex fires exactly once and
// every edge is rate-balanced, inserting FORK/JOIN vertices wherever a
// producer's and a consumer's token chunks don't line up one-to-one.
//
// Grounded on libspider's SRDAGTransformation (fork/join synthesis
// around mismatched production/consumption) and the delay_init
// =delay_final=D simplification already used by package dependency
// for delayed edges: an edge carrying a Delay of size D is expanded as
// if a synthetic INIT vertex had already produced D tokens before the
// first real firing, and a synthetic END vertex consumes the D tokens
// no firing in this iteration claims.
package srdag

import (
	"fmt"

	"github.com/preesm/spider2-sub007/brv"
	"github.com/preesm/spider2-sub007/expr"
	"github.com/preesm/spider2-sub007/pisdf"
)

// Vertex is one single-rate copy of a firing of a PiSDF vertex, or a
// synthetic FORK/JOIN/INIT/END vertex inserted to reconcile mismatched
// production/consumption chunks (spec.md §4.6).
//
// Simplification (documented in DESIGN.md): HEAD/TAIL and the REPEAT
// broadcast adapter are not synthesized as distinct kinds; a prefix/
// suffix slice is just a degenerate FORK/JOIN with one discarded-sized
// neighbor chunk, and a broadcast is just a FORK whose outputs happen
// to share a rate. Both fall naturally out of the same chunking pass.
type Vertex struct {
	Name string
	Kind pisdf.VertexKind

	// OriginVertexIx is the index into the source Graph's Vertices this
	// copy was expanded from, or -1 for a synthetic FORK/JOIN/INIT/END.
	OriginVertexIx int
	// OriginFiring is this copy's firing index (0..q[OriginVertexIx]-1);
	// meaningless for synthetic vertices.
	OriginFiring int64

	InputRates  []int64
	OutputRates []int64

	// Removed marks a vertex eliminated by Optimize; compaction happens
	// once, at the end of Optimize, rather than after every rewrite.
	Removed bool
}

// VertexRef names one (vertex, port) endpoint inside a Graph.
type VertexRef struct {
	VertexIx int
	PortIx   int
}

// Edge is a single-rate connection: Rate tokens flow from Source's
// output port to Sink's input port every iteration.
type Edge struct {
	Source VertexRef
	Sink   VertexRef
	Rate   int64

	Removed bool
}

// Graph is the flattened, single-rate graph spec.md §4.6 expands one
// PiSDF level into.
type Graph struct {
	Vertices []*Vertex
	Edges    []*Edge
}

func (g *Graph) addVertex(v *Vertex) int {
	g.Vertices = append(g.Vertices, v)
	return len(g.Vertices) - 1
}

func (g *Graph) addEdge(src, snk VertexRef, rate int64) {
	g.Edges = append(g.Edges, &Edge{Source: src, Sink: snk, Rate: rate})
}

// frame is one ordered chunk of a producer or consumer's token stream:
// ref names the (vertex, port) it belongs to, rate is its full size.
type frame struct {
	ref  VertexRef
	rate int64
}

// delaySize evaluates d's token count against rl's parameter table,
// or 0 for an edge with no delay.
func delaySize(d *pisdf.Delay, rl brv.RateLookup) (int64, error) {
	if d == nil {
		return 0, nil
	}
	lookup := func(ix int) (int64, error) { return rl.Table.Value(ix) }
	v, err := expr.Evaluate(d.ValueExpr, lookup)
	if err != nil && err != expr.ErrEvalOverflow {
		return 0, fmt.Errorf("%w: delay size: %v", brv.ErrPipelineInconsistent, err)
	}
	return v, nil
}

// Expand computes g's single-rate expansion given its repetition vector
// q (package brv) and rate lookup rl (spec.md §4.6).
func Expand(g *pisdf.Graph, q []int64, rl brv.RateLookup) (*Graph, error) {
	out := &Graph{}

	// copies[origIx][k] is the srdag vertex index of origIx's k-th firing.
	copies := make([][]int, len(g.Vertices))
	for i, v := range g.Vertices {
		if q[i] == 0 {
			continue // collapsed out of the BRV, spec.md §4.3
		}
		inRates, err := ratesOf(g, rl, i, v.Inputs, false)
		if err != nil {
			return nil, err
		}
		outRates, err := ratesOf(g, rl, i, v.Output, true)
		if err != nil {
			return nil, err
		}

		copies[i] = make([]int, q[i])
		for k := int64(0); k < q[i]; k++ {
			name := v.Name
			if q[i] > 1 {
				name = fmt.Sprintf("%s_%d", v.Name, k)
			}
			copies[i][k] = out.addVertex(&Vertex{
				Name: name, Kind: v.Kind,
				OriginVertexIx: i, OriginFiring: k,
				InputRates: inRates, OutputRates: outRates,
			})
		}
	}

	for _, e := range g.Edges {
		if q[e.Source.VertexIx] == 0 || q[e.Sink.VertexIx] == 0 {
			continue
		}
		if err := expandEdge(g, out, copies, e, rl); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func ratesOf(g *pisdf.Graph, rl brv.RateLookup, vertexIx int, ports []pisdf.Port, output bool) ([]int64, error) {
	rates := make([]int64, len(ports))
	for p := range ports {
		r, err := rl.Rate(g, pisdf.VertexRef{VertexIx: vertexIx, PortIx: p}, output)
		if err != nil {
			return nil, err
		}
		rates[p] = r
	}
	return rates, nil
}

// expandEdge builds the srdag edges (and any FORK/JOIN they need)
// realizing one original PiSDF edge across all of its endpoints'
// firings.
func expandEdge(g *pisdf.Graph, out *Graph, copies [][]int, e *pisdf.Edge, rl brv.RateLookup) error {
	srcIx, snkIx := e.Source.VertexIx, e.Sink.VertexIx
	srcRate, err := rl.Rate(g, e.Source, true)
	if err != nil {
		return err
	}
	snkRate, err := rl.Rate(g, e.Sink, false)
	if err != nil {
		return err
	}
	d, err := delaySize(e.Delay, rl)
	if err != nil {
		return err
	}

	var srcFrames, snkFrames []frame
	if d > 0 {
		initIx := out.addVertex(&Vertex{
			Name: fmt.Sprintf("init_%s", g.Vertices[snkIx].Name), Kind: pisdf.KindInit,
			OriginVertexIx: -1, OutputRates: []int64{d},
		})
		srcFrames = append(srcFrames, frame{ref: VertexRef{initIx, 0}, rate: d})
	}
	for _, copyIx := range copies[srcIx] {
		srcFrames = append(srcFrames, frame{ref: VertexRef{copyIx, e.Source.PortIx}, rate: srcRate})
	}
	for _, copyIx := range copies[snkIx] {
		snkFrames = append(snkFrames, frame{ref: VertexRef{copyIx, e.Sink.PortIx}, rate: snkRate})
	}
	if d > 0 {
		endIx := out.addVertex(&Vertex{
			Name: fmt.Sprintf("end_%s", g.Vertices[srcIx].Name), Kind: pisdf.KindEnd,
			OriginVertexIx: -1, InputRates: []int64{d},
		})
		snkFrames = append(snkFrames, frame{ref: VertexRef{endIx, 0}, rate: d})
	}

	return chunkAndWire(out, srcFrames, snkFrames)
}

// chunkAndWire walks srcFrames and snkFrames with a double cursor,
// slicing both streams into matching token chunks (spec.md §4.6's
// FORK/JOIN synthesis). A frame consumed by exactly one chunk connects
// directly; a frame split across several chunks gets a FORK (producer
// side) or a JOIN (consumer side) whose ports are the chunks in order.
func chunkAndWire(out *Graph, srcFrames, snkFrames []frame) error {
	type pairing struct {
		srcFrameIx, snkFrameIx int
		size                   int64
	}
	var pairings []pairing

	si, ti := 0, 0
	var sOff, tOff int64
	for si < len(srcFrames) && ti < len(snkFrames) {
		sRemain := srcFrames[si].rate - sOff
		tRemain := snkFrames[ti].rate - tOff
		chunk := sRemain
		if tRemain < chunk {
			chunk = tRemain
		}
		if chunk <= 0 {
			return fmt.Errorf("%w: zero-size token chunk while expanding edge", brv.ErrPipelineInconsistent)
		}
		pairings = append(pairings, pairing{srcFrameIx: si, snkFrameIx: ti, size: chunk})
		sOff += chunk
		tOff += chunk
		if sOff == srcFrames[si].rate {
			si++
			sOff = 0
		}
		if tOff == snkFrames[ti].rate {
			ti++
			tOff = 0
		}
	}
	if si != len(srcFrames) || ti != len(snkFrames) {
		return fmt.Errorf("%w: producer/consumer token totals disagree", brv.ErrPipelineInconsistent)
	}

	// producerOf/consumerOf resolve a pairing's endpoint to the VertexRef
	// that should carry that chunk: the original frame directly if it's
	// the sole occupant, or a synthesized FORK/JOIN port otherwise.
	producerOf := make([]VertexRef, len(pairings))
	consumerOf := make([]VertexRef, len(pairings))

	for fIx := 0; fIx < len(srcFrames); fIx++ {
		var members []int
		for pi, p := range pairings {
			if p.srcFrameIx == fIx {
				members = append(members, pi)
			}
		}
		if len(members) == 1 {
			producerOf[members[0]] = srcFrames[fIx].ref
			continue
		}
		sizes := make([]int64, len(members))
		for i, pi := range members {
			sizes[i] = pairings[pi].size
		}
		forkIx := out.addVertex(&Vertex{
			Name: "fork", Kind: pisdf.KindFork, OriginVertexIx: -1,
			InputRates: []int64{srcFrames[fIx].rate}, OutputRates: sizes,
		})
		out.addEdge(srcFrames[fIx].ref, VertexRef{forkIx, 0}, srcFrames[fIx].rate)
		for portIx, pi := range members {
			producerOf[pi] = VertexRef{forkIx, portIx}
		}
	}

	for fIx := 0; fIx < len(snkFrames); fIx++ {
		var members []int
		for pi, p := range pairings {
			if p.snkFrameIx == fIx {
				members = append(members, pi)
			}
		}
		if len(members) == 1 {
			consumerOf[members[0]] = snkFrames[fIx].ref
			continue
		}
		sizes := make([]int64, len(members))
		for i, pi := range members {
			sizes[i] = pairings[pi].size
		}
		joinIx := out.addVertex(&Vertex{
			Name: "join", Kind: pisdf.KindJoin, OriginVertexIx: -1,
			InputRates: sizes, OutputRates: []int64{snkFrames[fIx].rate},
		})
		out.addEdge(VertexRef{joinIx, 0}, snkFrames[fIx].ref, snkFrames[fIx].rate)
		for portIx, pi := range members {
			consumerOf[pi] = VertexRef{joinIx, portIx}
		}
	}

	for pi, p := range pairings {
		out.addEdge(producerOf[pi], consumerOf[pi], p.size)
	}
	return nil
}

// Optimize applies the four post-expansion rewrites of spec.md §4.6 to a
// fixed point, grounded on libspider's optims/helper package:
//
//   - unitary elimination (unitaryOptimizer.cpp's optimizeUnitaryVertex):
//     a FORK with a single output, or a JOIN with a single input, did no
//     actual splitting and is removed, its producer wired directly to
//     its consumer.
//   - fork-fork / join-join merge (patternOptimizer.h's reduceFFJJWorker):
//     a FORK feeding another FORK's sole input, or a JOIN fed by another
//     JOIN's sole output, collapses into one vertex: the surviving vertex
//     (the upstream FORK, or the downstream JOIN) keeps its other ports
//     unchanged and takes the absorbed vertex's ports in place of the
//     merged one.
//   - join-fork merge (partialSingleRate.h's gather/scatter linkage): a
//     JOIN feeding a FORK directly, where the JOIN's input partition
//     exactly matches the FORK's output partition, is pure regrouping
//     with no reordering — each of the JOIN's producers is rewired
//     straight to the matching FORK consumer and both vertices vanish.
//
// Scoped out (documented in DESIGN.md): fork-fork and join-join only
// merge at the surviving vertex's trailing port, and join-fork only
// merges when partitions match exactly port-for-port. Both restrictions
// sidestep renumbering any port besides the ones being spliced, which
// is the source of the off-by-one risk the unrestricted merges carry.
func Optimize(g *Graph) *Graph {
	changed := true
	for changed {
		changed = false
		for vi, v := range g.Vertices {
			if v.Removed {
				continue
			}
			switch v.Kind {
			case pisdf.KindFork:
				if len(v.OutputRates) == 1 {
					if eliminateUnitary(g, vi) {
						changed = true
						continue
					}
				}
				if mergeForkFork(g, vi) {
					changed = true
				}
			case pisdf.KindJoin:
				if len(v.InputRates) == 1 {
					if eliminateUnitary(g, vi) {
						changed = true
						continue
					}
				}
				if mergeJoinJoin(g, vi) {
					changed = true
					continue
				}
				if mergeJoinFork(g, vi) {
					changed = true
				}
			}
		}
	}
	return compact(g)
}

// edgeFromSource returns the non-removed edge sourced at ref, or nil.
func edgeFromSource(g *Graph, ref VertexRef) *Edge {
	for _, e := range g.Edges {
		if !e.Removed && e.Source == ref {
			return e
		}
	}
	return nil
}

// edgeToSink returns the non-removed edge sinking at ref, or nil.
func edgeToSink(g *Graph, ref VertexRef) *Edge {
	for _, e := range g.Edges {
		if !e.Removed && e.Sink == ref {
			return e
		}
	}
	return nil
}

// mergeForkFork collapses vertex ai (a FORK) with the FORK consuming
// its last output port, appending the downstream FORK's output ports
// in the merged port's place. No other port on ai is renumbered.
func mergeForkFork(g *Graph, ai int) bool {
	a := g.Vertices[ai]
	lastPort := len(a.OutputRates) - 1
	if lastPort < 0 {
		return false
	}
	e := edgeFromSource(g, VertexRef{ai, lastPort})
	if e == nil || e.Sink.PortIx != 0 {
		return false
	}
	bi := e.Sink.VertexIx
	b := g.Vertices[bi]
	if b.Removed || b.Kind != pisdf.KindFork {
		return false
	}
	bEdges := make([]*Edge, len(b.OutputRates))
	for _, oe := range g.Edges {
		if !oe.Removed && oe.Source.VertexIx == bi {
			bEdges[oe.Source.PortIx] = oe
		}
	}
	for _, oe := range bEdges {
		if oe == nil {
			return false
		}
	}

	base := lastPort
	a.OutputRates = append(a.OutputRates[:lastPort], b.OutputRates...)
	for newPortIx, oe := range bEdges {
		oe.Source = VertexRef{ai, base + newPortIx}
	}
	e.Removed = true
	b.Removed = true
	return true
}

// mergeJoinJoin collapses vertex ai (a JOIN) with the JOIN producing
// into its last input port, appending the upstream JOIN's input ports
// in the merged port's place. No other port on ai is renumbered.
func mergeJoinJoin(g *Graph, ai int) bool {
	a := g.Vertices[ai]
	lastPort := len(a.InputRates) - 1
	if lastPort < 0 {
		return false
	}
	e := edgeToSink(g, VertexRef{ai, lastPort})
	if e == nil || e.Source.PortIx != 0 {
		return false
	}
	bi := e.Source.VertexIx
	b := g.Vertices[bi]
	if b.Removed || b.Kind != pisdf.KindJoin {
		return false
	}
	bEdges := make([]*Edge, len(b.InputRates))
	for _, ie := range g.Edges {
		if !ie.Removed && ie.Sink.VertexIx == bi {
			bEdges[ie.Sink.PortIx] = ie
		}
	}
	for _, ie := range bEdges {
		if ie == nil {
			return false
		}
	}

	base := lastPort
	a.InputRates = append(a.InputRates[:lastPort], b.InputRates...)
	for newPortIx, ie := range bEdges {
		ie.Sink = VertexRef{ai, base + newPortIx}
	}
	e.Removed = true
	b.Removed = true
	return true
}

// mergeJoinFork eliminates a JOIN feeding a FORK directly when the
// JOIN's input partition exactly matches the FORK's output partition:
// each JOIN producer is rewired straight to the matching FORK consumer
// and both vertices disappear, since the gather and the following
// scatter land on identical boundaries and reorder nothing.
func mergeJoinFork(g *Graph, ji int) bool {
	j := g.Vertices[ji]
	e := edgeFromSource(g, VertexRef{ji, 0})
	if e == nil || e.Sink.PortIx != 0 {
		return false
	}
	fi := e.Sink.VertexIx
	f := g.Vertices[fi]
	if f.Removed || f.Kind != pisdf.KindFork {
		return false
	}
	if len(j.InputRates) != len(f.OutputRates) {
		return false
	}
	for i := range j.InputRates {
		if j.InputRates[i] != f.OutputRates[i] {
			return false
		}
	}

	jIn := make([]*Edge, len(j.InputRates))
	for _, ie := range g.Edges {
		if !ie.Removed && ie.Sink.VertexIx == ji {
			jIn[ie.Sink.PortIx] = ie
		}
	}
	fOut := make([]*Edge, len(f.OutputRates))
	for _, oe := range g.Edges {
		if !oe.Removed && oe.Source.VertexIx == fi {
			fOut[oe.Source.PortIx] = oe
		}
	}
	for i := range jIn {
		if jIn[i] == nil || fOut[i] == nil {
			return false
		}
	}

	for i := range jIn {
		g.addEdge(jIn[i].Source, fOut[i].Sink, jIn[i].Rate)
		jIn[i].Removed = true
		fOut[i].Removed = true
	}
	e.Removed = true
	j.Removed = true
	f.Removed = true
	return true
}

// eliminateUnitary removes vertex vi (a 1-in/1-out passthrough FORK or
// JOIN) by splicing its sole incoming edge directly to its sole
// outgoing edge.
func eliminateUnitary(g *Graph, vi int) bool {
	var in, out *Edge
	for _, e := range g.Edges {
		if e.Removed {
			continue
		}
		if e.Sink.VertexIx == vi {
			in = e
		}
		if e.Source.VertexIx == vi {
			out = e
		}
	}
	if in == nil || out == nil {
		return false
	}
	g.addEdge(in.Source, out.Sink, in.Rate)
	in.Removed = true
	out.Removed = true
	g.Vertices[vi].Removed = true
	return true
}

// compact drops every Removed vertex and edge, renumbering VertexRefs
// in the surviving edges to match.
func compact(g *Graph) *Graph {
	remap := make([]int, len(g.Vertices))
	out := &Graph{}
	for i, v := range g.Vertices {
		if v.Removed {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.Vertices)
		out.Vertices = append(out.Vertices, v)
	}
	for _, e := range g.Edges {
		if e.Removed {
			continue
		}
		src, snk := remap[e.Source.VertexIx], remap[e.Sink.VertexIx]
		if src == -1 || snk == -1 {
			continue
		}
		out.Edges = append(out.Edges, &Edge{
			Source: VertexRef{src, e.Source.PortIx},
			Sink:   VertexRef{snk, e.Sink.PortIx},
			Rate:   e.Rate,
		})
	}
	return out
}
