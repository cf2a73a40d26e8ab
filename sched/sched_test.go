package sched_test

import (
	"errors"
	"testing"

	"github.com/preesm/spider2-sub007/archi"
	"github.com/preesm/spider2-sub007/mapper"
	"github.com/preesm/spider2-sub007/sched"
	"github.com/preesm/spider2-sub007/task"
)

func onePEPlatform(name string) (*archi.Platform, *archi.PE) {
	p := archi.NewPlatform()
	c := &archi.Cluster{Name: "c0"}
	pe := archi.NewPE(name, 0, 0)
	c.PEs = append(c.PEs, pe)
	p.AddCluster(c)
	return p, pe
}

func unitTiming(*task.Task, *archi.PE) (int64, error) { return 10, nil }

func TestRun_ListSchedulesInTopologicalOrder(t *testing.T) {
	p, pe := onePEPlatform("pe0")
	m := mapper.New(p)
	s := sched.New(p, m, unitTiming, sched.PolicyList)

	tasks := []*task.Task{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	// A -> C, B -> C: C must be scheduled after both.
	edges := []sched.Edge{{From: 0, To: 2}, {From: 1, To: 2}}

	result, err := s.Run(tasks, edges)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	timeline := result.Timeline[pe.VirtualIx]
	if len(timeline) != 3 {
		t.Fatalf("timeline = %v, want 3 tasks", timeline)
	}
	if timeline[2] != tasks[2] {
		t.Errorf("last scheduled = %q, want C", timeline[2].Name)
	}
	if tasks[2].StartTime < tasks[0].EndTime || tasks[2].StartTime < tasks[1].EndTime {
		t.Errorf("C started at %d before its predecessors finished (A end %d, B end %d)",
			tasks[2].StartTime, tasks[0].EndTime, tasks[1].EndTime)
	}
}

func TestRun_DetectsCycle(t *testing.T) {
	p, _ := onePEPlatform("pe0")
	m := mapper.New(p)
	s := sched.New(p, m, unitTiming, sched.PolicyList)

	tasks := []*task.Task{{Name: "A"}, {Name: "B"}}
	edges := []sched.Edge{{From: 0, To: 1}, {From: 1, To: 0}}

	if _, err := s.Run(tasks, edges); !errors.Is(err, sched.ErrCyclic) {
		t.Errorf("want ErrCyclic, got %v", err)
	}
}

func TestRun_GreedyRespectsPredecessors(t *testing.T) {
	p, pe := onePEPlatform("pe0")
	m := mapper.New(p)
	s := sched.New(p, m, unitTiming, sched.PolicyGreedy)

	tasks := []*task.Task{{Name: "A"}, {Name: "B"}}
	edges := []sched.Edge{{From: 0, To: 1}}

	result, err := s.Run(tasks, edges)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	timeline := result.Timeline[pe.VirtualIx]
	if len(timeline) != 2 || timeline[0].Name != "A" || timeline[1].Name != "B" {
		t.Errorf("timeline = %v, want [A, B]", timeline)
	}
}

func TestRun_PropagatesMapError(t *testing.T) {
	p := archi.NewPlatform() // no PEs at all
	m := mapper.New(p)
	s := sched.New(p, m, unitTiming, sched.PolicyList)

	tasks := []*task.Task{{Name: "A"}}
	if _, err := s.Run(tasks, nil); !errors.Is(err, mapper.ErrNoEligiblePE) {
		t.Errorf("want ErrNoEligiblePE, got %v", err)
	}
}
