package rtrun

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/preesm/spider2-sub007/rtmsg"
	"github.com/preesm/spider2-sub007/sched"
	"github.com/preesm/spider2-sub007/task"
)

// Dispatcher translates scheduled, allocated tasks into JobMessages and
// routes them through a Communicator (spec.md §4.10), one task at a time,
// in schedule order.
type Dispatcher struct {
	Communicator rtmsg.Communicator

	nextJobIx   uint32
	lastJobOnPE map[uint32]uint32 // runner virtual ix -> highest job index dispatched to it so far
}

// NewDispatcher returns a Dispatcher routing through comm.
func NewDispatcher(comm rtmsg.Communicator) *Dispatcher {
	return &Dispatcher{Communicator: comm, lastJobOnPE: make(map[uint32]uint32)}
}

// buildMessage constructs taskIx's JobMessage and records its bookkeeping
// (next job index, this runner's new high-water job index), without
// performing any I/O. predecessorPEs lists the virtual index of every
// predecessor task's PE, used to derive ExecConstraints — "for each PE
// the task depends on, record the highest job index on that PE the task
// must wait for (one constraint per predecessor PE suffices)" (spec.md
// §4.10). Must be called in schedule order: that ordering is what makes
// "highest job index on that PE so far" equal to "the predecessor's own
// job index or later".
func (d *Dispatcher) buildMessage(t *task.Task, taskIx int, kernelIx int, nParamsOut uint32, predecessorPEs []uint32) rtmsg.JobMessage {
	runnerIx := uint32(t.PE.VirtualIx)

	seen := make(map[uint32]bool, len(predecessorPEs))
	var constraints []rtmsg.JobConstraint
	for _, peIx := range predecessorPEs {
		if peIx == runnerIx || seen[peIx] {
			continue
		}
		seen[peIx] = true
		if jobIx, ok := d.lastJobOnPE[peIx]; ok {
			constraints = append(constraints, rtmsg.JobConstraint{RunnerIx: peIx, JobIx: jobIx})
		}
	}

	msg := rtmsg.JobMessage{
		CorrelationID:     uuid.New(),
		Ix:                d.nextJobIx,
		TaskIx:            uint32(taskIx),
		KernelIx:          kernelIx,
		ExecConstraints:   constraints,
		Inputs:            t.Inputs,
		Outputs:           t.Outputs,
		ExpectedParamsOut: nParamsOut,
	}
	d.lastJobOnPE[runnerIx] = msg.Ix
	d.nextJobIx++
	return msg
}

// Dispatch builds and synchronously sends one task's JobMessage. See
// buildMessage for taskIx/predecessorPEs semantics.
func (d *Dispatcher) Dispatch(t *task.Task, taskIx int, kernelIx int, nParamsOut uint32, predecessorPEs []uint32) (rtmsg.JobMessage, error) {
	msg := d.buildMessage(t, taskIx, kernelIx, nParamsOut, predecessorPEs)
	if err := d.Communicator.SendJob(uint32(t.PE.VirtualIx), msg); err != nil {
		return rtmsg.JobMessage{}, Fatal(TransportError, "send_job", err)
	}
	return msg, nil
}

// DispatchSchedule builds sc's JobMessages in scheduleOrder (the exact
// order the scheduler assigned them — spec.md §4.10 "jobs are dispatched
// in schedule order"), looking up each task's predecessor PEs via
// predecessorsOf (task index -> predecessor task indices) and its
// kernel/param-count via kernelOf, then fans the actual SendJob calls out
// one goroutine per destination runner (SPEC_FULL.md's domain-stack
// wiring for golang.org/x/sync/errgroup): each runner's own goroutine
// still sends its messages strictly in order, so the per-runner FIFO
// guarantee holds, while independent runners proceed concurrently.
// errgroup gives first-error cancellation, matching §7's "fatal to the
// current iteration" rule — one runner's TRANSPORT_ERROR stops the others
// from queuing further, though already-in-flight sends still complete.
func (d *Dispatcher) DispatchSchedule(sc *sched.Schedule, scheduleOrder []int, predecessorsOf func(taskIx int) []int, kernelOf func(taskIx int) (kernelIx int, nParamsOut uint32)) error {
	peOf := make(map[*task.Task]uint32, len(sc.Tasks))
	for peIx, timeline := range sc.Timeline {
		for _, t := range timeline {
			peOf[t] = uint32(peIx)
		}
	}

	byRunner := make(map[uint32][]rtmsg.JobMessage)
	var runnerOrder []uint32
	for _, ix := range scheduleOrder {
		t := sc.Tasks[ix]
		var predPEs []uint32
		for _, predIx := range predecessorsOf(ix) {
			predPEs = append(predPEs, peOf[sc.Tasks[predIx]])
		}
		kernelIx, nParamsOut := kernelOf(ix)
		msg := d.buildMessage(t, ix, kernelIx, nParamsOut, predPEs)

		runnerIx := uint32(t.PE.VirtualIx)
		if _, ok := byRunner[runnerIx]; !ok {
			runnerOrder = append(runnerOrder, runnerIx)
		}
		byRunner[runnerIx] = append(byRunner[runnerIx], msg)
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, runnerIx := range runnerOrder {
		runnerIx, msgs := runnerIx, byRunner[runnerIx]
		g.Go(func() error {
			for _, msg := range msgs {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := d.Communicator.SendJob(runnerIx, msg); err != nil {
					return Fatal(TransportError, "send_job", err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
