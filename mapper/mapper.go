// Package mapper implements the best-fit mapper of spec.md §4.8, grounded
// line-for-line on libspider/scheduling/mapper/BestFitMapper.cpp.
package mapper

import (
	"errors"
	"fmt"

	"github.com/preesm/spider2-sub007/archi"
	"github.com/preesm/spider2-sub007/task"
)

// ErrNoEligiblePE is the fatal error of spec.md §7 "NO_ELIGIBLE_PE": no
// enabled, mappable PE exists for a task.
var ErrNoEligiblePE = errors.New("mapper: no eligible PE for task")

// grtBias is the small constant overhead BestFitMapper.cpp adds to the
// GRT PE's ready time "to break inequality in favor of other PEs".
const grtBias = 10

// Stats tracks, per PE virtual index, the time at which that PE becomes
// free — the mapper's only external state (BestFitMapper.cpp's `Stats`).
type Stats struct {
	endTime map[int]int64
}

// NewStats returns an empty Stats (every PE ready at time 0).
func NewStats() *Stats { return &Stats{endTime: make(map[int]int64)} }

// EndTime returns the time at which pe becomes free.
func (s *Stats) EndTime(peVirtualIx int) int64 { return s.endTime[peVirtualIx] }

// SetEndTime records pe's new end time after a task has been mapped onto it.
func (s *Stats) SetEndTime(peVirtualIx int, t int64) { s.endTime[peVirtualIx] = t }

// Mapper picks, for one task, the PE minimizing its candidate end time
// (spec.md §4.8), tie-breaking on minimum idle time.
type Mapper struct {
	Platform *archi.Platform
	Stats    *Stats
}

// New returns a Mapper over platform, with a fresh Stats.
func New(platform *archi.Platform) *Mapper {
	return &Mapper{Platform: platform, Stats: NewStats()}
}

// TimingFunc resolves t's execution time on pe (wraps task.Task.TimingOnPE
// so Map doesn't need to thread an expr.Lookup through every call site).
type TimingFunc func(t *task.Task, pe *archi.PE) (int64, error)

// Map finds the best-fit PE for t given minStartTime (the task's minimum
// ready time, computed by the scheduler from its predecessors), maps it
// (updating Stats and t's PE/StartTime/EndTime), and returns the chosen
// PE. ErrNoEligiblePE if no enabled, mappable PE exists.
func (m *Mapper) Map(t *task.Task, minStartTime int64, timing TimingFunc) (*archi.PE, error) {
	var (
		found         *archi.PE
		bestIdleTime  int64
		bestEndTime   int64
		bestStartTime int64
		haveBest      bool
	)
	for _, pe := range m.Platform.AllPEs() {
		if !t.IsMappableOnPE(pe) {
			continue
		}
		bias := int64(0)
		if m.Platform.IsGRT(pe) {
			bias = grtBias
		}
		readyTime := m.Stats.EndTime(pe.VirtualIx) + bias
		startTime := readyTime
		if minStartTime > startTime {
			startTime = minStartTime
		}
		idleTime := startTime - readyTime
		dur, err := timing(t, pe)
		if err != nil {
			return nil, err
		}
		endTime := startTime + dur

		switch {
		case !haveBest, endTime < bestEndTime:
			found, bestEndTime, bestIdleTime, bestStartTime, haveBest = pe, endTime, idleTime, startTime, true
		case endTime == bestEndTime && idleTime < bestIdleTime:
			found, bestEndTime, bestIdleTime, bestStartTime = pe, endTime, idleTime, startTime
		}
	}
	if found == nil {
		return nil, fmt.Errorf("task %q: %w", t.Name, ErrNoEligiblePE)
	}

	t.PE = found
	t.StartTime = bestStartTime
	t.EndTime = bestEndTime
	m.Stats.SetEndTime(found.VirtualIx, bestEndTime)
	return found, nil
}
