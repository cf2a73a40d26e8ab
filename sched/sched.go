// Package sched implements the list scheduler of spec.md §4.7: topological
// flattening, per-task minimum ready time, and a main loop that hands each
// task to the mapper in priority order.
package sched

import (
	"errors"

	"github.com/preesm/spider2-sub007/archi"
	"github.com/preesm/spider2-sub007/mapper"
	"github.com/preesm/spider2-sub007/task"
)

// ErrCyclic is returned by Run when the task graph is not acyclic (list
// scheduling and the greedy DFS both require a topological order).
var ErrCyclic = errors.New("sched: task graph is not acyclic")

// Policy selects the scheduling strategy.
type Policy uint8

const (
	// PolicyList pops the highest-priority ready task each step; default
	// priority is source-order after a topological sort (spec.md §4.7).
	PolicyList Policy = iota
	// PolicyGreedy walks a DFS from sink tasks, scheduling a task only
	// once every predecessor has already been scheduled.
	PolicyGreedy
)

// String renders the policy for logs/config.
func (p Policy) String() string {
	switch p {
	case PolicyList:
		return "LIST"
	case PolicyGreedy:
		return "GREEDY"
	default:
		return "UNKNOWN"
	}
}

// Edge is a data dependency between two tasks, indexed into the Tasks
// slice given to Run, carrying the transfer size comm_cost needs.
type Edge struct {
	From, To  int
	SizeBytes int64
}

// Schedule is the scheduler's output.
type Schedule struct {
	Tasks []*task.Task
	// Timeline maps a PE's virtual index to its tasks in dispatch order
	// (spec.md §4.10 "jobs are dispatched in schedule order").
	Timeline map[int][]*task.Task
}

// Scheduler runs list scheduling over one task graph.
type Scheduler struct {
	Platform *archi.Platform
	Mapper   *mapper.Mapper
	Timing   mapper.TimingFunc
	Policy   Policy
}

// New returns a Scheduler.
func New(platform *archi.Platform, m *mapper.Mapper, timing mapper.TimingFunc, policy Policy) *Scheduler {
	return &Scheduler{Platform: platform, Mapper: m, Timing: timing, Policy: policy}
}

// Run schedules tasks given their edges (spec.md §4.7).
func (s *Scheduler) Run(tasks []*task.Task, edges []Edge) (*Schedule, error) {
	preds := make([][]Edge, len(tasks))
	succs := make([][]int, len(tasks))
	indeg := make([]int, len(tasks))
	for _, e := range edges {
		preds[e.To] = append(preds[e.To], e)
		succs[e.From] = append(succs[e.From], e.To)
		indeg[e.To]++
	}

	sched := &Schedule{Tasks: tasks, Timeline: make(map[int][]*task.Task)}
	switch s.Policy {
	case PolicyGreedy:
		if err := s.runGreedy(tasks, preds, succs, sched); err != nil {
			return nil, err
		}
	default:
		order, err := topoOrder(len(tasks), succs, indeg)
		if err != nil {
			return nil, err
		}
		if err := s.runList(tasks, preds, order, sched); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func (s *Scheduler) runList(tasks []*task.Task, preds [][]Edge, order []int, sched *Schedule) error {
	for _, ix := range order {
		if err := s.scheduleOne(tasks, preds[ix], ix, sched); err != nil {
			return err
		}
	}
	return nil
}

// runGreedy performs a DFS from sinks (tasks with no successors),
// scheduling a task only once every predecessor has already been
// scheduled (spec.md §4.7 "Greedy variant: DFS from sinks, scheduling a
// task iff all its predecessors are already scheduled").
func (s *Scheduler) runGreedy(tasks []*task.Task, preds [][]Edge, succs [][]int, sched *Schedule) error {
	scheduled := make([]bool, len(tasks))
	var visit func(ix int) error
	visit = func(ix int) error {
		if scheduled[ix] {
			return nil
		}
		for _, p := range preds[ix] {
			if !scheduled[p.From] {
				if err := visit(p.From); err != nil {
					return err
				}
			}
		}
		if scheduled[ix] {
			return nil
		}
		if err := s.scheduleOne(tasks, preds[ix], ix, sched); err != nil {
			return err
		}
		scheduled[ix] = true
		return nil
	}

	var sinks []int
	for ix := range tasks {
		if len(succs[ix]) == 0 {
			sinks = append(sinks, ix)
		}
	}
	for _, ix := range sinks {
		if err := visit(ix); err != nil {
			return err
		}
	}
	// A task unreachable from any sink (e.g. isolated dead code) is still
	// scheduled, in declaration order.
	for ix := range tasks {
		if err := visit(ix); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) scheduleOne(tasks []*task.Task, preds []Edge, ix int, sched *Schedule) error {
	t := tasks[ix]
	minStart := s.minReadyTime(tasks, preds)
	pe, err := s.Mapper.Map(t, minStart, s.Timing)
	if err != nil {
		return err
	}
	sched.Timeline[pe.VirtualIx] = append(sched.Timeline[pe.VirtualIx], t)
	return nil
}

// minReadyTime computes spec.md §4.7's "per-task minimum ready time = max
// over input edges of predecessor.end_time + comm_cost(src_PE, this_PE,
// size)". The destination PE ("this_PE") is not yet chosen at this point
// in the pipeline (the mapper picks it next), so this uses the worst-case
// cost the platform's CostFunctor reports moving the edge's payload out
// of the predecessor's cluster — a documented simplification (DESIGN.md):
// the exact, destination-aware cost only affects the mapper's tie-break,
// not this lower bound.
func (s *Scheduler) minReadyTime(tasks []*task.Task, preds []Edge) int64 {
	var minStart int64
	for _, e := range preds {
		pred := tasks[e.From]
		cost := s.worstCaseCost(pred.PE, e.SizeBytes)
		if ready := pred.EndTime + cost; ready > minStart {
			minStart = ready
		}
	}
	return minStart
}

func (s *Scheduler) worstCaseCost(src *archi.PE, size int64) int64 {
	var worst int64
	for _, pe := range s.Platform.AllPEs() {
		if c := s.Platform.Cost(src, pe, size); c > worst {
			worst = c
		}
	}
	return worst
}

// topoOrder returns a topological order over n tasks, breaking ties by
// increasing index (spec.md §4.7 "default = source-order after topo
// sort"). ErrCyclic if no such order exists.
func topoOrder(n int, succs [][]int, indeg []int) ([]int, error) {
	remaining := append([]int(nil), indeg...)
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if remaining[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		minPos, minVal := 0, ready[0]
		for i, v := range ready[1:] {
			if v < minVal {
				minPos, minVal = i+1, v
			}
		}
		ix := ready[minPos]
		ready = append(ready[:minPos], ready[minPos+1:]...)
		order = append(order, ix)

		for _, succ := range succs[ix] {
			remaining[succ]--
			if remaining[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}
	if len(order) != n {
		return nil, ErrCyclic
	}
	return order, nil
}
