package expr_test

import (
	"errors"
	"testing"

	"github.com/preesm/spider2-sub007/expr"
)

func noParams(int) (int64, error) {
	return 0, errors.New("no params in this test")
}

func TestEvaluate_Arithmetic(t *testing.T) {
	// (2 + 3) * 4 = 20
	e := expr.New([]expr.Token{
		expr.Lit(2), expr.Lit(3), expr.Op2(expr.Add),
		expr.Lit(4), expr.Op2(expr.Mul),
	})
	got, err := expr.Evaluate(e, noParams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 20 {
		t.Errorf("got %d, want 20", got)
	}
}

func TestEvaluate_ParamRef(t *testing.T) {
	lookup := func(ix int) (int64, error) {
		if ix == 0 {
			return 7, nil
		}
		return 0, errors.New("unknown param")
	}
	e := expr.New([]expr.Token{expr.Param(0), expr.Lit(1), expr.Op2(expr.Add)})
	got, err := expr.Evaluate(e, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 8 {
		t.Errorf("got %d, want 8", got)
	}
}

func TestEvaluate_DivByZero(t *testing.T) {
	e := expr.New([]expr.Token{expr.Lit(1), expr.Lit(0), expr.Op2(expr.Div)})
	_, err := expr.Evaluate(e, noParams)
	if !errors.Is(err, expr.ErrEvalError) {
		t.Errorf("want ErrEvalError, got %v", err)
	}
}

func TestEvaluate_ModByZero(t *testing.T) {
	e := expr.New([]expr.Token{expr.Lit(1), expr.Lit(0), expr.Op2(expr.Mod)})
	_, err := expr.Evaluate(e, noParams)
	if !errors.Is(err, expr.ErrEvalError) {
		t.Errorf("want ErrEvalError, got %v", err)
	}
}

func TestEvaluate_UnknownParam(t *testing.T) {
	e := expr.New([]expr.Token{expr.Param(5)})
	_, err := expr.Evaluate(e, noParams)
	if err == nil {
		t.Errorf("want an error for unresolved parameter")
	}
}

func TestEvaluate_OverflowSaturates(t *testing.T) {
	e := expr.New([]expr.Token{
		expr.Lit(1 << 62), expr.Lit(4), expr.Op2(expr.Mul),
	})
	got, err := expr.Evaluate(e, noParams)
	if !errors.Is(err, expr.ErrEvalOverflow) {
		t.Errorf("want ErrEvalOverflow, got %v", err)
	}
	if got <= 0 {
		t.Errorf("expected a saturated positive result, got %d", got)
	}
}

func TestEvaluate_Functions(t *testing.T) {
	e := expr.New([]expr.Token{expr.Lit(-3), expr.Fn(expr.Abs)})
	got, err := expr.Evaluate(e, noParams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Errorf("got %d, want 3", got)
	}

	e2 := expr.New([]expr.Token{expr.Lit(5), expr.Lit(9), expr.Fn(expr.Max)})
	got2, err := expr.Evaluate(e2, noParams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got2 != 9 {
		t.Errorf("got %d, want 9", got2)
	}
}

func TestEvaluate_StackUnderflow(t *testing.T) {
	e := expr.New([]expr.Token{expr.Op2(expr.Add)})
	_, err := expr.Evaluate(e, noParams)
	if !errors.Is(err, expr.ErrEvalError) {
		t.Errorf("want ErrEvalError, got %v", err)
	}
}

func TestEvaluate_TrailingGarbageIsAShapeError(t *testing.T) {
	e := expr.New([]expr.Token{expr.Lit(1), expr.Lit(2)})
	_, err := expr.Evaluate(e, noParams)
	if !errors.Is(err, expr.ErrEvalError) {
		t.Errorf("want ErrEvalError, got %v", err)
	}
}
