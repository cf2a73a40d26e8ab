// Package fifoalloc implements the virtual FIFO allocator of spec.md
// §4.9, grounded on libspider/scheduling/memory/{AllocationRule.h,
// FifoAllocator.cpp,NoSyncFifoAllocator.h} and runtime/common/Fifo.h.
package fifoalloc

import (
	"errors"
	"fmt"

	"github.com/preesm/spider2-sub007/task"
)

// ErrOutOfStack mirrors stack.ErrOutOfStack for the allocator's own
// virtual-address space (spec.md §7 "OUT_OF_STACK").
var ErrOutOfStack = errors.New("fifoalloc: virtual address space exhausted")

// AllocationRule names how one edge's buffer relates to its siblings
// (AllocationRule.h's AllocType).
type AllocationRule uint8

const (
	// NEW is a fresh allocation.
	NEW AllocationRule = iota
	// SAMEIN aliases into an existing input FIFO with an offset (used by
	// fork/head/tail, which only slice a buffer).
	SAMEIN
	// SAMEOUT aliases into an existing output FIFO with an offset (used
	// by join/duplicate).
	SAMEOUT
	// EXT points at an external interface (no allocation of its own).
	EXT
	// MERGE composes one output from several inputs concatenated.
	MERGE
	// REPEAT is MERGE's reverse: one input feeds several repeated outputs.
	REPEAT
)

// String renders the rule for logs.
func (r AllocationRule) String() string {
	switch r {
	case NEW:
		return "NEW"
	case SAMEIN:
		return "SAME_IN"
	case SAMEOUT:
		return "SAME_OUT"
	case EXT:
		return "EXT"
	case MERGE:
		return "MERGE"
	case REPEAT:
		return "REPEAT"
	default:
		return "UNKNOWN"
	}
}

// Attribute names a Fifo's ownership contract (Fifo.h's FifoAttribute).
type Attribute uint8

const (
	// RWOwn: the owner allocates before write and deallocates after read.
	RWOwn Attribute = iota
	// RWOnly: the owner does neither — no dealloc after read, no alloc
	// before write (e.g. an aliased slice of another FIFO).
	RWOnly
	// RWExt: reads/writes go to external memory, outside this allocator.
	RWExt
)

// Fifo is one edge's resolved virtual buffer descriptor (Fifo.h's RTFifo).
type Fifo struct {
	VirtualAddress uint64
	Size           uint32
	Offset         uint32
	Count          uint32
	Rule           AllocationRule
	Attribute      Attribute
}

// Allocator is a monotonically increasing virtual-address cursor (spec.md
// §4.9): "each allocation returns the current cursor and advances it by
// the buffer size". It owns no physical memory — persistent delays are
// allocated once, physically, by an external memory interface; the
// allocator only reserves and remembers the virtual window for them.
type Allocator struct {
	cursor    uint64
	watermark uint64 // cursor value clear() rewinds to (past persistent reservations)
}

// New returns an empty Allocator.
func New() *Allocator { return &Allocator{} }

// Allocate returns a fresh Fifo of size bytes with AllocationRule NEW and
// Attribute RWOwn, advancing the cursor.
func (a *Allocator) Allocate(size uint32) Fifo {
	f := Fifo{VirtualAddress: a.cursor, Size: size, Rule: NEW, Attribute: RWOwn}
	a.cursor += uint64(size)
	return f
}

// AliasInto returns a Fifo that slices size bytes at offset out of an
// existing sibling FIFO (SAME_IN/SAME_OUT), allocating nothing of its own
// (Attribute RWOnly: no dealloc after read, no alloc before write).
func AliasInto(sibling Fifo, rule AllocationRule, offset, size uint32) (Fifo, error) {
	if rule != SAMEIN && rule != SAMEOUT {
		return Fifo{}, fmt.Errorf("fifoalloc: AliasInto requires SAME_IN or SAME_OUT, got %s", rule)
	}
	if uint64(offset)+uint64(size) > uint64(sibling.Size) {
		return Fifo{}, fmt.Errorf("fifoalloc: alias [%d,%d) exceeds sibling size %d", offset, offset+size, sibling.Size)
	}
	return Fifo{
		VirtualAddress: sibling.VirtualAddress + uint64(offset),
		Size:           size,
		Offset:         offset,
		Rule:           rule,
		Attribute:      RWOnly,
	}, nil
}

// Merge returns one output Fifo of totalSize bytes composed by
// concatenating parts (MERGE), or, with reverse=true, one input Fifo
// repeated across several outputs (REPEAT); the caller still derives each
// individual output's offset via AliasInto against the returned Fifo.
func (a *Allocator) Merge(parts []Fifo, reverse bool) Fifo {
	var total uint32
	for _, p := range parts {
		total += p.Size
	}
	rule := MERGE
	if reverse {
		rule = REPEAT
	}
	f := Fifo{VirtualAddress: a.cursor, Size: total, Count: uint32(len(parts)), Rule: rule, Attribute: RWOwn}
	a.cursor += uint64(total)
	return f
}

// External returns an EXT Fifo pointing at an externally-owned interface
// buffer; the allocator tracks no virtual address for it.
func External(size uint32) Fifo {
	return Fifo{Size: size, Rule: EXT, Attribute: RWExt}
}

// ReservePersistent allocates size bytes once for a persistent delay
// (spec.md §4.9 "Persistent delays are allocated once ... and their
// contents are zero-initialized") and raises the watermark Clear rewinds
// to, so the reservation survives every subsequent Clear.
func (a *Allocator) ReservePersistent(size uint32) Fifo {
	f := a.Allocate(size)
	a.watermark = a.cursor
	return f
}

// Clear resets the cursor to the reservation watermark (spec.md §4.9
// "clear() resets the cursor to the reservation watermark (persistent
// delays)"), so persistent-delay buffers survive across iterations while
// every other allocation is reclaimed.
func (a *Allocator) Clear() {
	a.cursor = a.watermark
}

// Cursor returns the allocator's current virtual-address high-water mark,
// for diagnostics and for bounding a fixed-size physical backing pool.
func (a *Allocator) Cursor() uint64 { return a.cursor }

// AliasOutputs implements the no-sync allocator's core rule (spec.md §4.9
// "A 'no-sync' variant detects fork/duplicate chains and elides
// allocations by aliasing the input"): a fork/duplicate task's outputs
// carry no allocation of their own, only slices of its single input, laid
// out back-to-back in outputSizes order.
func AliasOutputs(input Fifo, outputSizes []uint32, rule AllocationRule) ([]Fifo, error) {
	out := make([]Fifo, len(outputSizes))
	var offset uint32
	for i, size := range outputSizes {
		f, err := AliasInto(input, rule, offset, size)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		out[i] = f
		offset += size
	}
	return out, nil
}

// Descriptor converts a resolved Fifo to the FIFODescriptor task.Task
// carries on its Inputs/Outputs slices.
func Descriptor(f Fifo) task.FIFODescriptor {
	return task.FIFODescriptor{VirtualAddress: f.VirtualAddress, Size: f.Size, Offset: f.Offset}
}

// RewriteConsumerInput points consumer's portIx input descriptor at f,
// completing the no-sync elision rule's second half: "it also rewrites
// follow-on tasks' input descriptors to point at the aliased source"
// instead of the eliding fork/duplicate task's (now nonexistent) output
// buffer.
func RewriteConsumerInput(consumer *task.Task, portIx int, f Fifo) error {
	if portIx < 0 || portIx >= len(consumer.Inputs) {
		return fmt.Errorf("fifoalloc: consumer %q has no input port %d", consumer.Name, portIx)
	}
	consumer.Inputs[portIx] = Descriptor(f)
	return nil
}
