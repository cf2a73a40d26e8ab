// Package rtmsg implements the orchestrator/runner messages and the
// abstract Communicator transport of spec.md §3/§4.10/§5, grounded on
// libspider/runtime/message/JobMessage.h.
package rtmsg

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/preesm/spider2-sub007/task"
)

// NoWait marks a JobConstraint slot as unused (JobMessage.h's SIZE_MAX
// sentinel for lrtToWait_/jobToWait_: "wait on nothing").
const NoWait = ^uint32(0)

// JobConstraint names the highest job index on one runner a job must
// observe complete before it may start (JobMessage.h's JobConstraint:
// "one constraint per predecessor PE suffices", spec.md §4.10).
type JobConstraint struct {
	RunnerIx uint32
	JobIx    uint32
}

// NoConstraint reports whether c is the "wait on nothing" sentinel.
func (c JobConstraint) NoConstraint() bool {
	return c.RunnerIx == NoWait && c.JobIx == NoWait
}

// JobMessage is the orchestrator's dispatch unit (spec.md §3
// "JobMessage"): one scheduled task, its resolved FIFOs, and the
// predecessor constraints its runner must honor before executing it.
type JobMessage struct {
	// CorrelationID lets a real transport de-duplicate retransmits; the
	// in-memory Communicator ignores it.
	CorrelationID     uuid.UUID
	Ix                uint32
	TaskIx            uint32
	KernelIx          int
	ExecConstraints   []JobConstraint
	Inputs            []task.FIFODescriptor
	Outputs           []task.FIFODescriptor
	ExpectedParamsOut uint32
}

// ParameterMessage is a config actor's completion notice (spec.md §3
// "ParameterMessage"): the setter vertex and the values it resolved.
type ParameterMessage struct {
	CorrelationID  uuid.UUID
	SetterVertexIx int
	Values         []int64
}

// TraceMessage reports a completed job's timing, for scheduling feedback
// and post-mortem traces (spec.md §4.10's dispatch/completion loop).
type TraceMessage struct {
	JobIx     uint32
	RunnerIx  uint32
	StartTime int64
	EndTime   int64
}

// KernelError reports a worker-side kernel failure (spec.md §7
// "KERNEL_FAILURE"); the orchestrator aborts via RESET on receipt, no
// retry.
type KernelError struct {
	JobIx    uint32
	RunnerIx uint32
	Err      error
}

func (e *KernelError) Error() string {
	return "rtmsg: kernel failure on job " + strconv.Itoa(int(e.JobIx)) + " at runner " + strconv.Itoa(int(e.RunnerIx)) + ": " + e.Err.Error()
}

func (e *KernelError) Unwrap() error { return e.Err }

// Notification is the runner-to-orchestrator channel's payload (spec.md
// §4.10 "Notification ∈ {ParameterMessage, TraceMessage, KernelError}").
// Exactly one field is non-nil/non-zero per notification.
type Notification struct {
	Parameter *ParameterMessage
	Trace     *TraceMessage
	Error     *KernelError
}

// Communicator is the abstract orchestrator/runner transport (spec.md
// §4.10/§5): "any transport" implementing two logical channels, jobs
// flowing orchestrator-to-runner and notifications flowing back.
// Implementations must preserve per-runner FIFO order on SendJob (spec.md
// §5 ordering guarantee (a): "JobMessages sent to a given runner arrive
// in the order the orchestrator dispatched them").
type Communicator interface {
	// SendJob dispatches msg to the runner owning PE runnerIx.
	SendJob(runnerIx uint32, msg JobMessage) error
	// RecvNotification blocks until a Notification is available from any
	// runner, or the Communicator is closed.
	RecvNotification() (Notification, error)
}
