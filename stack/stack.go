// Package stack implements the per-StackID arena allocator supplemented
// from libspider/common/memory/static-allocators/FreeListStaticAllocator.h
// and memory/static-policies/LinearStaticAllocator.h: spec.md §5 treats
// memory stacks ("GENERAL, TRANSFO, SCHEDULE, RUNTIME, EXPR_PARSER,
// ARCHI") as owned-by-creator arenas with a pluggable allocation policy.
package stack

import (
	"errors"
	"fmt"
)

// ErrOutOfStack is returned when a policy cannot satisfy an allocation
// within the arena's current capacity (spec.md §7 "OUT_OF_STACK").
var ErrOutOfStack = errors.New("stack: arena exhausted")

// ErrForeignAddress is returned by Deallocate for an address not owned by
// this Arena (spec.md §9 Design Notes: "Cross-arena deallocation must be
// rejected").
var ErrForeignAddress = errors.New("stack: address belongs to a different arena")

// ID names one of the fixed per-purpose arenas spec.md §5 enumerates.
type ID uint8

const (
	IDGeneral ID = iota
	IDTransfo
	IDSchedule
	IDRuntime
	IDExprParser
	IDArchi
)

// String renders the ID for logs.
func (id ID) String() string {
	switch id {
	case IDGeneral:
		return "GENERAL"
	case IDTransfo:
		return "TRANSFO"
	case IDSchedule:
		return "SCHEDULE"
	case IDRuntime:
		return "RUNTIME"
	case IDExprParser:
		return "EXPR_PARSER"
	case IDArchi:
		return "ARCHI"
	default:
		return "UNKNOWN"
	}
}

// Policy selects the allocation strategy backing an Arena.
type Policy uint8

const (
	// LinearStatic never reclaims individual allocations; Deallocate is a
	// no-op and only Reset reclaims space (LinearStaticAllocator.h).
	LinearStatic Policy = iota
	// FreelistStatic tracks freed blocks in a first-fit free list over a
	// fixed-capacity arena (FreeListStaticAllocator.h's FIND_FIRST policy).
	FreelistStatic
	// FreelistDynamic is FreelistStatic (first-fit) with no capacity
	// ceiling: it grows the arena's high-water mark instead of failing
	// with ErrOutOfStack.
	FreelistDynamic
	// Generic is a fixed-capacity free list using best-fit block selection
	// (FreeListStaticAllocator.h's FIND_BEST policy: the smallest free
	// block that still satisfies the request, minimizing fragmentation at
	// the cost of a full free-list scan instead of first-fit's early
	// exit). spec.md §9 Design Notes enumerates "linear,
	// freelist-first-fit, freelist-best-fit, freelist-dynamic-growth" as
	// four distinct policies; this is the best-fit one.
	Generic
)

type block struct {
	offset uint64
	size   uint64
}

// Arena is one memory-stack partition: an owner-only allocator with no
// internal locking (spec.md §5 "A stack is owned by the thread that
// creates it; cross-thread handoff is forbidden except via explicit
// message passing" — so Arena itself needs none).
type Arena struct {
	ID       ID
	Policy   Policy
	Capacity uint64 // ignored (unbounded) when Policy == FreelistDynamic

	highWater uint64
	free      []block          // FreelistStatic/FreelistDynamic/Generic only
	live      map[uint64]block // address -> block, for Deallocate validation
}

// NewArena returns an empty Arena of the given id/policy/capacity.
// Capacity is ignored for FreelistDynamic.
func NewArena(id ID, policy Policy, capacity uint64) *Arena {
	return &Arena{ID: id, Policy: policy, Capacity: capacity, live: make(map[uint64]block)}
}

// Allocate reserves size bytes and returns their address, or
// ErrOutOfStack if the policy cannot satisfy the request.
func (a *Arena) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return a.highWater, nil
	}
	if a.Policy == FreelistStatic || a.Policy == FreelistDynamic || a.Policy == Generic {
		if addr, ok := a.takeFree(size); ok {
			a.live[addr] = block{offset: addr, size: size}
			return addr, nil
		}
	}
	if a.Policy != FreelistDynamic && a.highWater+size > a.Capacity {
		return 0, fmt.Errorf("%s: %w (requested %d, have %d)", a.ID, ErrOutOfStack, size, a.Capacity-a.highWater)
	}
	addr := a.highWater
	a.highWater += size
	a.live[addr] = block{offset: addr, size: size}
	return addr, nil
}

// takeFree dispatches to findFirst (FreelistStatic/FreelistDynamic) or
// findBest (Generic), grounded on FreeListStaticAllocator.h's
// FIND_FIRST/FIND_BEST policyMethod split.
func (a *Arena) takeFree(size uint64) (uint64, bool) {
	if a.Policy == Generic {
		return a.findBest(size)
	}
	return a.findFirst(size)
}

// findFirst returns the first free block (declaration order) able to
// serve size, splitting the remainder back in.
func (a *Arena) findFirst(size uint64) (uint64, bool) {
	for i, b := range a.free {
		if b.size < size {
			continue
		}
		return a.takeBlock(i, size), true
	}
	return 0, false
}

// findBest scans the whole free list and returns the smallest block
// still able to serve size, minimizing the leftover fragment
// (FreeListStaticAllocator.h's findBest: a full scan instead of
// first-fit's early exit).
func (a *Arena) findBest(size uint64) (uint64, bool) {
	best := -1
	for i, b := range a.free {
		if b.size < size {
			continue
		}
		if best == -1 || b.size < a.free[best].size {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return a.takeBlock(best, size), true
}

// takeBlock removes size bytes from the free block at index i, keeping
// any remainder in place, and returns the served address.
func (a *Arena) takeBlock(i int, size uint64) uint64 {
	b := a.free[i]
	addr := b.offset
	if b.size > size {
		a.free[i] = block{offset: b.offset + size, size: b.size - size}
	} else {
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
	return addr
}

// Deallocate releases the block at address. LinearStatic policies do not
// reclaim individual blocks (only Reset shrinks the arena); the other
// policies return it to the free list. ErrForeignAddress if address was
// never returned by this Arena's Allocate (or was already freed).
func (a *Arena) Deallocate(address uint64) error {
	b, ok := a.live[address]
	if !ok {
		return fmt.Errorf("%s: address %d: %w", a.ID, address, ErrForeignAddress)
	}
	delete(a.live, address)
	if a.Policy != LinearStatic {
		a.free = append(a.free, b)
	}
	return nil
}

// Reset reclaims every allocation, returning the arena to empty.
func (a *Arena) Reset() {
	a.highWater = 0
	a.free = nil
	a.live = make(map[uint64]block)
}

// InUse reports the arena's current live-byte count, for diagnostics.
func (a *Arena) InUse() uint64 {
	var n uint64
	for _, b := range a.live {
		n += b.size
	}
	return n
}
