package task_test

import (
	"errors"
	"testing"

	"github.com/preesm/spider2-sub007/archi"
	"github.com/preesm/spider2-sub007/expr"
	"github.com/preesm/spider2-sub007/pisdf"
	"github.com/preesm/spider2-sub007/task"
)

func lit(v int64) expr.Expression { return expr.New([]expr.Token{expr.Lit(v)}) }

func TestTask_IsMappableOnPE(t *testing.T) {
	tsk := &task.Task{Constraint: pisdf.PEConstraint{Blacklist: []string{"pe1"}}}
	pe0 := archi.NewPE("pe0", 0, 0)
	pe1 := archi.NewPE("pe1", 1, 0)

	if !tsk.IsMappableOnPE(pe0) {
		t.Error("pe0 should be mappable")
	}
	if tsk.IsMappableOnPE(pe1) {
		t.Error("pe1 is blacklisted, should not be mappable")
	}
	pe0.SetEnabled(false)
	if tsk.IsMappableOnPE(pe0) {
		t.Error("disabled PE should never be mappable")
	}
}

func TestTask_TimingOnPE(t *testing.T) {
	pe := archi.NewPE("pe0", 0, 0)
	tsk := &task.Task{TimingExprByPE: map[string]expr.Expression{"pe0": lit(42)}}
	v, err := tsk.TimingOnPE(pe, func(int) (int64, error) { return 0, nil })
	if err != nil || v != 42 {
		t.Fatalf("TimingOnPE = %d, %v; want 42, nil", v, err)
	}

	other := archi.NewPE("pe1", 1, 0)
	if _, err := tsk.TimingOnPE(other, nil); !errors.Is(err, task.ErrNoTiming) {
		t.Errorf("want ErrNoTiming, got %v", err)
	}
}
