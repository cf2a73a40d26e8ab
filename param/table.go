package param

import (
	"fmt"

	"github.com/preesm/spider2-sub007/expr"
	"github.com/preesm/spider2-sub007/pisdf"
)

// Table is the per-firing snapshot of a Graph's parameter values
// (spec.md §3 "GraphFiring ... holds a parameter-value vector").
//
// STATIC parameters are resolved eagerly at construction. INHERITED
// parameters copy their parent scope's value once, at construction; a
// later change in the parent is not seen ("Cyclic references ... resolved
// with an arena + index model": Table holds its parent by reference, not
// the reverse).
// DYNAMIC parameters start unresolved and are written once via Set.
type Table struct {
	graph  *pisdf.Graph
	parent *Table

	values []int64
	ready  []bool
}

// NewTable resolves graph's STATIC and INHERITED parameters immediately
// and leaves DYNAMIC ones pending. parent is nil for a top-level graph.
func NewTable(graph *pisdf.Graph, parent *Table) (*Table, error) {
	t := &Table{
		graph:  graph,
		parent: parent,
		values: make([]int64, len(graph.Parameters)),
		ready:  make([]bool, len(graph.Parameters)),
	}
	for ix, p := range graph.Parameters {
		switch p.Kind {
		case pisdf.ParamDynamic:
			continue // resolved later via Set
		case pisdf.ParamInherited:
			if parent == nil {
				return nil, fmt.Errorf("%s[%d]: %w", graph.Name, ix, ErrNoParentScope)
			}
			v, err := parent.Value(p.InheritedFromParam)
			if err != nil {
				return nil, err
			}
			t.values[ix] = v
			t.ready[ix] = true
		case pisdf.ParamStatic:
			v, err := expr.Evaluate(p.Expr, t.localLookup)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", graph.Name, ix, err)
			}
			t.values[ix] = v
			t.ready[ix] = true
		}
	}
	return t, nil
}

// localLookup resolves a parameter index against this table only, used
// while evaluating another STATIC parameter's expression within the same
// scope. Declaration order is the resolution order (spec.md §4.3
// determinism note: "tie-break by declaration order" applies analogously
// here), so a STATIC parameter may only reference earlier parameters.
func (t *Table) localLookup(ix int) (int64, error) {
	return t.Value(ix)
}

// Value evaluates and returns parameter ix's current i64 value. Returns
// ErrParamNotReady if ix is DYNAMIC and has not been Set yet, per spec.md
// §4.2's invariant.
func (t *Table) Value(ix int) (int64, error) {
	if ix < 0 || ix >= len(t.values) {
		return 0, ErrUnknownParam
	}
	if !t.ready[ix] {
		return 0, fmt.Errorf("%s[%d]: %w", t.graph.Name, ix, ErrParamNotReady)
	}
	return t.values[ix], nil
}

// IsReady reports whether parameter ix currently holds a resolved value.
func (t *Table) IsReady(ix int) bool {
	return ix >= 0 && ix < len(t.ready) && t.ready[ix]
}

// Set writes value for a DYNAMIC parameter, as delivered by a
// ParameterMessage (spec.md §3). Non-DYNAMIC parameters are immutable
// once resolved; Set still accepts a matching value for idempotence but
// rejects a conflicting one.
func (t *Table) Set(ix int, value int64) error {
	if ix < 0 || ix >= len(t.values) {
		return ErrUnknownParam
	}
	if t.ready[ix] && t.values[ix] != value {
		return fmt.Errorf("param: %s[%d] already resolved to %d, got conflicting %d", t.graph.Name, ix, t.values[ix], value)
	}
	t.values[ix] = value
	t.ready[ix] = true
	return nil
}

// AllReady reports whether every parameter in the table has a resolved
// value (used by firing.GraphFiring to decide when BRV resolution may
// proceed for a dynamic firing).
func (t *Table) AllReady() bool {
	for _, r := range t.ready {
		if !r {
			return false
		}
	}
	return true
}

// PendingDynamic returns the indices of parameters that are DYNAMIC and
// not yet resolved, i.e. the set of config-actor outputs the orchestrator
// must still await (spec.md §4.11, AWAITING_PARAMS).
func (t *Table) PendingDynamic() []int {
	var pending []int
	for ix, p := range t.graph.Parameters {
		if p.Kind == pisdf.ParamDynamic && !t.ready[ix] {
			pending = append(pending, ix)
		}
	}
	return pending
}
