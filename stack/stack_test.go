package stack_test

import (
	"errors"
	"testing"

	"github.com/preesm/spider2-sub007/stack"
)

func TestArena_LinearStaticNeverReclaimsUntilReset(t *testing.T) {
	a := stack.NewArena(stack.IDGeneral, stack.LinearStatic, 16)
	addr1, err := a.Allocate(8)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if addr1 != 0 {
		t.Errorf("addr1 = %d, want 0", addr1)
	}
	if err := a.Deallocate(addr1); err != nil {
		t.Fatalf("Deallocate: %v", err)
	}
	if _, err := a.Allocate(8); err != nil {
		t.Fatalf("second Allocate: %v", err)
	}
	// A third allocation of 8 exceeds the 16-byte capacity since
	// LinearStatic never reclaims individual blocks.
	if _, err := a.Allocate(8); !errors.Is(err, stack.ErrOutOfStack) {
		t.Errorf("want ErrOutOfStack, got %v", err)
	}

	a.Reset()
	if _, err := a.Allocate(16); err != nil {
		t.Errorf("Allocate after Reset: %v", err)
	}
}

func TestArena_FreelistStaticReusesFreedBlocks(t *testing.T) {
	a := stack.NewArena(stack.IDSchedule, stack.FreelistStatic, 16)
	addr1, _ := a.Allocate(8)
	if _, err := a.Allocate(8); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := a.Allocate(1); !errors.Is(err, stack.ErrOutOfStack) {
		t.Errorf("want ErrOutOfStack at capacity, got %v", err)
	}

	if err := a.Deallocate(addr1); err != nil {
		t.Fatalf("Deallocate: %v", err)
	}
	addr3, err := a.Allocate(8)
	if err != nil {
		t.Fatalf("Allocate after free: %v", err)
	}
	if addr3 != addr1 {
		t.Errorf("addr3 = %d, want reused address %d", addr3, addr1)
	}
}

func TestArena_DeallocateForeignAddressRejected(t *testing.T) {
	a := stack.NewArena(stack.IDRuntime, stack.FreelistStatic, 16)
	other := stack.NewArena(stack.IDRuntime, stack.FreelistStatic, 16)
	addr, _ := other.Allocate(4)
	if err := a.Deallocate(addr); !errors.Is(err, stack.ErrForeignAddress) {
		t.Errorf("want ErrForeignAddress, got %v", err)
	}
}

func TestArena_FreelistDynamicNeverExhausts(t *testing.T) {
	a := stack.NewArena(stack.IDGeneral, stack.FreelistDynamic, 0)
	if _, err := a.Allocate(1 << 20); err != nil {
		t.Errorf("unexpected error growing a dynamic arena: %v", err)
	}
}

// freeHoles punches two differently-sized free blocks into a, in
// declaration order [big, small], so first-fit and best-fit disagree on
// which one serves a small request.
func freeHoles(t *testing.T, policy stack.Policy) (*stack.Arena, uint64, uint64) {
	t.Helper()
	a := stack.NewArena(stack.IDGeneral, policy, 32)
	big, err := a.Allocate(10)
	if err != nil {
		t.Fatalf("Allocate big: %v", err)
	}
	small, err := a.Allocate(4)
	if err != nil {
		t.Fatalf("Allocate small: %v", err)
	}
	if _, err := a.Allocate(8); err != nil {
		t.Fatalf("Allocate trailing: %v", err)
	}
	if err := a.Deallocate(big); err != nil {
		t.Fatalf("Deallocate big: %v", err)
	}
	if err := a.Deallocate(small); err != nil {
		t.Fatalf("Deallocate small: %v", err)
	}
	return a, big, small
}

func TestArena_FreelistStaticIsFirstFit(t *testing.T) {
	a, big, _ := freeHoles(t, stack.FreelistStatic)
	// First-fit scans the free list in declaration order and takes the
	// first block able to serve 4 bytes: the 10-byte hole freed first.
	addr, err := a.Allocate(4)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if addr != big {
		t.Errorf("first-fit addr = %d, want the larger hole at %d", addr, big)
	}
}

func TestArena_GenericIsBestFit(t *testing.T) {
	a, _, small := freeHoles(t, stack.Generic)
	// Best-fit scans the whole free list and takes the smallest block
	// still able to serve 4 bytes: the 4-byte hole, not the 10-byte one.
	addr, err := a.Allocate(4)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if addr != small {
		t.Errorf("best-fit addr = %d, want the exact-fit hole at %d", addr, small)
	}
}
