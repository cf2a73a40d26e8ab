// Package firing implements the hierarchical firing state tree of
// spec.md §4.5: one GraphHandler per subgraph entry, owning the
// GraphFirings (resolved parameters, BRV, child handlers) of each firing
// of the hierarchical vertex that entered it.
package firing

import (
	"errors"
	"fmt"

	"github.com/preesm/spider2-sub007/brv"
	"github.com/preesm/spider2-sub007/dependency"
	"github.com/preesm/spider2-sub007/param"
	"github.com/preesm/spider2-sub007/pisdf"
)

// ErrNotResolved is returned when an operation requiring a resolved BRV
// (EnterChild, Dependencies) is attempted on a firing still awaiting
// DYNAMIC parameters.
var ErrNotResolved = errors.New("firing: BRV not yet resolved")

// ErrNotSubgraphVertex is returned by EnterChild for a vertex that is not
// a KindGraph vertex with a non-nil Subgraph.
var ErrNotSubgraphVertex = errors.New("firing: vertex is not a subgraph vertex")

// ErrNotInterfaceVertex is returned by the interface dependency resolver
// for a vertex that is not declared in Graph.InputInterfaces/OutputInterfaces.
var ErrNotInterfaceVertex = errors.New("firing: vertex is not a declared interface")

// HandlerHandle and FiringHandle index Arena, per spec.md §9 Design Notes
// "Cyclic references ... resolved with an arena + index model. Each
// firing holds its parent handler index, not a back-pointer."
type HandlerHandle int
type FiringHandle int

// NoHandler / NoFiring mark the absence of a parent, used by the
// top-level (root) handler and its firing.
const (
	NoHandler HandlerHandle = -1
	NoFiring  FiringHandle  = -1
)

// Arena is the shared object store backing the GraphHandler/GraphFiring
// tree. It never frees entries: Clear() unlinks stale children from their
// parent's Children map but leaves the arena slots allocated, trading
// memory for a lookup model with no dangling pointers.
type Arena struct {
	handlers []*GraphHandler
	firings  []*GraphFiring

	// OnRelease, if set, is invoked for every GraphFiring about to be
	// cleared, before its parameter table and BRV are reset — a hook
	// through which a caller can release that firing's tasks (spec.md §4.5
	// "On clear(), child handlers release tasks and reset BRV"), without
	// firing depending on the package that owns them.
	OnRelease func(FiringHandle)
}

// NewArena returns an empty Arena.
func NewArena() *Arena { return &Arena{} }

// Handler dereferences a HandlerHandle.
func (a *Arena) Handler(h HandlerHandle) *GraphHandler { return a.handlers[h] }

// Firing dereferences a FiringHandle.
func (a *Arena) Firing(f FiringHandle) *GraphFiring { return a.firings[f] }

func (a *Arena) putHandler(h *GraphHandler) HandlerHandle {
	a.handlers = append(a.handlers, h)
	return HandlerHandle(len(a.handlers) - 1)
}

func (a *Arena) putFiring(f *GraphFiring) FiringHandle {
	a.firings = append(a.firings, f)
	return FiringHandle(len(a.firings) - 1)
}

// GraphHandler owns one GraphFiring per firing of the hierarchical vertex
// that entered its subgraph (spec.md §3 "GraphHandler: owns one or more
// GraphFirings, one per firing of the enclosing subgraph").
type GraphHandler struct {
	arena *Arena
	self  HandlerHandle

	Graph *pisdf.Graph

	// ParentFiring is the firing of the enclosing graph this handler was
	// entered from, or NoFiring for the root handler.
	ParentFiring FiringHandle
	// SubgraphVertexIx is the KindGraph vertex index, within the parent
	// graph, whose firings this handler represents, or -1 at the root.
	SubgraphVertexIx int

	Firings []FiringHandle
}

// GraphFiring is one firing of a subgraph: its resolved parameters, its
// BRV, and its children's handlers (spec.md §3 "GraphFiring: holds a
// parameter-value vector ..., a BRV vector ..., and a map from vertex to
// child GraphHandler").
type GraphFiring struct {
	arena *Arena
	self  FiringHandle

	// Owner is the handler this is one firing of.
	Owner HandlerHandle
	// FiringIndex is this firing's position (0-based) among its owner's
	// Firings.
	FiringIndex int64

	Params *param.Table
	BRV    []int64

	static   bool
	resolved bool

	// Children maps a KindGraph vertex index inside this firing's own
	// graph to the HandlerHandle entered for it, created lazily once this
	// firing's BRV is resolved (spec.md §4.5 "created when BRV for a
	// firing is resolved and that firing contains subgraph vertices").
	Children map[int]HandlerHandle
}

// NewRootHandler creates the single top-level GraphHandler for graph,
// with one firing (a top-level graph fires exactly once per iteration).
func NewRootHandler(arena *Arena, graph *pisdf.Graph) (HandlerHandle, error) {
	return newHandler(arena, graph, NoFiring, -1, 1)
}

// EnterChild resolves (creating if necessary) the child handler for the
// KindGraph vertex at vertexIx inside gf's own graph, whose repetition
// count is gf.BRV[vertexIx] firings of that hierarchical vertex.
// ErrNotResolved if gf's own BRV hasn't been computed yet.
func (gf *GraphFiring) EnterChild(vertexIx int) (HandlerHandle, error) {
	if !gf.resolved {
		return NoHandler, fmt.Errorf("firing: graph %q firing %d: %w", gf.Graph().Name, gf.FiringIndex, ErrNotResolved)
	}
	if h, ok := gf.Children[vertexIx]; ok {
		return h, nil
	}
	v := gf.Graph().Vertices[vertexIx]
	if v.Kind != pisdf.KindGraph || v.Subgraph == nil {
		return NoHandler, fmt.Errorf("firing: vertex %q: %w", v.Name, ErrNotSubgraphVertex)
	}
	h, err := newHandler(gf.arena, v.Subgraph, gf.self, vertexIx, gf.BRV[vertexIx])
	if err != nil {
		return NoHandler, err
	}
	gf.Children[vertexIx] = h
	return h, nil
}

func newHandler(arena *Arena, graph *pisdf.Graph, parentFiring FiringHandle, subgraphVertexIx int, repetitionCount int64) (HandlerHandle, error) {
	h := &GraphHandler{arena: arena, Graph: graph, ParentFiring: parentFiring, SubgraphVertexIx: subgraphVertexIx}
	handle := arena.putHandler(h)
	h.self = handle

	var parentTable *param.Table
	if parentFiring != NoFiring {
		parentTable = arena.Firing(parentFiring).Params
	}
	for k := int64(0); k < repetitionCount; k++ {
		tab, err := param.NewTable(graph, parentTable)
		if err != nil {
			return NoHandler, fmt.Errorf("firing: graph %q firing %d: %w", graph.Name, k, err)
		}
		gf := &GraphFiring{arena: arena, Owner: handle, FiringIndex: k, Params: tab, Children: map[int]HandlerHandle{}}
		gf.static = tab.AllReady()
		fh := arena.putFiring(gf)
		gf.self = fh
		h.Firings = append(h.Firings, fh)
	}
	return handle, nil
}

// Graph returns the graph this firing is a firing of.
func (gf *GraphFiring) Graph() *pisdf.Graph { return gf.arena.Handler(gf.Owner).Graph }

// IsStatic reports whether no DYNAMIC parameter is pending for this
// firing, i.e. whether BRV may be resolved without awaiting a config
// actor (spec.md §3 "a firing is static iff no DYNAMIC parameter reaches
// any rate or topology-shaping value" — approximated here, as in the
// source, by full parameter-table readiness).
func (gf *GraphFiring) IsStatic() bool { return gf.static }

// IsResolved reports whether ResolveBRV has succeeded for this firing.
func (gf *GraphFiring) IsResolved() bool { return gf.resolved }

// SetParam forwards to the firing's own parameter table and, once every
// parameter becomes ready, marks the firing eligible for ResolveBRV
// (spec.md §4.11 AWAITING_PARAMS -> RESOLVING transition).
func (gf *GraphFiring) SetParam(ix int, value int64) error {
	if err := gf.Params.Set(ix, value); err != nil {
		return err
	}
	gf.static = gf.Params.AllReady()
	return nil
}

// ResolveBRV computes gf's repetition vector now that its parameter table
// is fully resolved. Construction (NewRootHandler, EnterChild) does not
// resolve BRV, for static firings as well as dynamic ones: every firing
// stays unresolved until ResolveBRV succeeds, and a dynamic firing must
// first have its DYNAMIC parameters set via SetParam. rl.Table is
// overwritten with gf's own table; callers only need to supply
// InterfaceOuterRate.
func (gf *GraphFiring) ResolveBRV(rl brv.RateLookup) error {
	if !gf.Params.AllReady() {
		return fmt.Errorf("firing: graph %q firing %d: %w", gf.Graph().Name, gf.FiringIndex, param.ErrParamNotReady)
	}
	rl.Table = gf.Params
	q, err := brv.Solve(gf.Graph(), rl)
	if err != nil {
		return err
	}
	gf.BRV = q
	gf.resolved = true
	return nil
}

// Iterator builds a dependency.Iterator over gf's own graph, wiring an
// InterfaceResolver that crosses into the parent firing for INPUT/OUTPUT
// interface vertices (spec.md §4.4/§4.5): "INPUT interface: dependency
// resolves to the source of the external edge in the parent firing at the
// same firing index". rl.Table is overwritten with gf's own table.
func (gf *GraphFiring) Iterator(rl brv.RateLookup) dependency.Iterator {
	rl.Table = gf.Params
	return dependency.Iterator{
		Graph:    gf.Graph(),
		BRV:      gf.BRV,
		Rates:    rl,
		Resolver: gf.interfaceResolver(rl),
	}
}

func (gf *GraphFiring) interfaceResolver(rl brv.RateLookup) dependency.InterfaceResolver {
	return func(dir pisdf.InterfaceDirection, vertexIx int, _ int64) ([]dependency.Dependency, error) {
		h := gf.arena.Handler(gf.Owner)
		if h.ParentFiring == NoFiring {
			return nil, fmt.Errorf("firing: vertex %q: %w (no enclosing graph)", gf.Graph().Vertices[vertexIx].Name, ErrNotInterfaceVertex)
		}
		portIx, ok := interfacePortIndex(gf.Graph(), dir, vertexIx)
		if !ok {
			return nil, fmt.Errorf("firing: vertex %q: %w", gf.Graph().Vertices[vertexIx].Name, ErrNotInterfaceVertex)
		}
		parent := gf.arena.Firing(h.ParentFiring)
		parentRL := rl
		parentRL.Table = parent.Params
		parentIter := parent.Iterator(parentRL)
		return parentIter.Dependencies(h.SubgraphVertexIx, gf.FiringIndex, portIx)
	}
}

func interfacePortIndex(g *pisdf.Graph, dir pisdf.InterfaceDirection, vertexIx int) (int, bool) {
	list := g.InputInterfaces
	if dir == pisdf.InterfaceOutput {
		list = g.OutputInterfaces
	}
	for i, vix := range list {
		if vix == vertexIx {
			return i, true
		}
	}
	return 0, false
}

// Clear recursively releases h's firings' children and resets each
// firing's BRV and parameter table, rebuilding a fresh one from the
// (unchanged) parent table — spec.md §3 "the tree is rebuilt on dynamic
// reconfiguration" and §9's reproducibility invariant: "Running clear()
// on a GraphHandler followed by identical parameter resolution produces
// bit-identical BRV and an equivalent schedule."
func (h *GraphHandler) Clear() error {
	var parentTable *param.Table
	if h.ParentFiring != NoFiring {
		parentTable = h.arena.Firing(h.ParentFiring).Params
	}
	for _, fh := range h.Firings {
		if err := h.arena.Firing(fh).clear(parentTable); err != nil {
			return err
		}
	}
	return nil
}

func (gf *GraphFiring) clear(parentTable *param.Table) error {
	if gf.arena.OnRelease != nil {
		gf.arena.OnRelease(gf.self)
	}
	for _, ch := range gf.Children {
		if err := gf.arena.Handler(ch).Clear(); err != nil {
			return err
		}
	}
	gf.Children = map[int]HandlerHandle{}
	gf.BRV = nil
	gf.resolved = false

	tab, err := param.NewTable(gf.Graph(), parentTable)
	if err != nil {
		return err
	}
	gf.Params = tab
	gf.static = tab.AllReady()
	return nil
}
