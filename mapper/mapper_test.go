package mapper_test

import (
	"errors"
	"testing"

	"github.com/preesm/spider2-sub007/archi"
	"github.com/preesm/spider2-sub007/mapper"
	"github.com/preesm/spider2-sub007/task"
)

func fixedTiming(d int64) mapper.TimingFunc {
	return func(*task.Task, *archi.PE) (int64, error) { return d, nil }
}

func TestMap_PicksMinimumEndTime(t *testing.T) {
	p := archi.NewPlatform()
	c := &archi.Cluster{Name: "c0"}
	slow := archi.NewPE("slow", 0, 0)
	fast := archi.NewPE("fast", 1, 0)
	c.PEs = append(c.PEs, slow, fast)
	p.AddCluster(c)

	m := mapper.New(p)
	m.Stats.SetEndTime(slow.VirtualIx, 0)
	m.Stats.SetEndTime(fast.VirtualIx, 100)

	tsk := &task.Task{Name: "t0"}
	pe, err := m.Map(tsk, 0, fixedTiming(10))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if pe != slow {
		t.Errorf("picked %q, want slow (end time 10 < fast's 110)", pe.Name)
	}
	if tsk.StartTime != 0 || tsk.EndTime != 10 {
		t.Errorf("start/end = %d/%d, want 0/10", tsk.StartTime, tsk.EndTime)
	}
}

func TestMap_TieBreaksOnIdleTime(t *testing.T) {
	p := archi.NewPlatform()
	c := &archi.Cluster{Name: "c0"}
	a := archi.NewPE("a", 0, 0)
	b := archi.NewPE("b", 1, 0)
	c.PEs = append(c.PEs, a, b)
	p.AddCluster(c)

	m := mapper.New(p)
	// a ready at 0, b ready at 5; minStartTime forces both candidates to
	// start at 5, so both end at 15 -> tie on end time, b has less idle.
	m.Stats.SetEndTime(a.VirtualIx, 0)
	m.Stats.SetEndTime(b.VirtualIx, 5)

	tsk := &task.Task{Name: "t0"}
	pe, err := m.Map(tsk, 5, fixedTiming(10))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if pe != b {
		t.Errorf("picked %q, want b (zero idle time)", pe.Name)
	}
}

func TestMap_GRTBiasDefersToOtherPEs(t *testing.T) {
	p := archi.NewPlatform()
	c := &archi.Cluster{Name: "c0"}
	grt := archi.NewPE("grt", 0, 0)
	worker := archi.NewPE("worker", 1, 0)
	c.PEs = append(c.PEs, grt, worker)
	p.AddCluster(c)
	p.GRTPE = grt

	m := mapper.New(p)
	// Both ready at the same time; without the bias this would tie and
	// fall to declaration order (grt first). The bias must break the tie
	// toward the worker.
	tsk := &task.Task{Name: "t0"}
	pe, err := m.Map(tsk, 0, fixedTiming(1))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if pe != worker {
		t.Errorf("picked %q, want worker (GRT bias should defer)", pe.Name)
	}
}

func TestMap_NoEligiblePE(t *testing.T) {
	p := archi.NewPlatform()
	m := mapper.New(p)
	tsk := &task.Task{Name: "t0"}
	if _, err := m.Map(tsk, 0, fixedTiming(1)); !errors.Is(err, mapper.ErrNoEligiblePE) {
		t.Errorf("want ErrNoEligiblePE, got %v", err)
	}
}
