package rtrun

import (
	"github.com/hashicorp/go-hclog"

	"github.com/preesm/spider2-sub007/rtmsg"
	"github.com/preesm/spider2-sub007/sched"
)

// ResetKernelIx is the reserved JobMessage.KernelIx a runner must
// recognize as "drain your queue without executing" (spec.md §5
// "Cancellation: ... sends a RESET to each runner; runners drain their
// queues without executing pending jobs and acknowledge").
const ResetKernelIx = -1

// Phases bundles the pipeline-stage callbacks the orchestrator sequences.
// Each is supplied by the caller so rtrun stays decoupled from exactly
// which packages (brv/dependency/firing vs. srdag) implement a phase —
// the single-rate and single-rate-less paths plug in different
// Schedule/Allocate closures over the same state machine.
type Phases struct {
	Resolve     func() error
	Transform   func() error
	Schedule    func() (sc *sched.Schedule, dispatchOrder []int, err error)
	Allocate    func(*sched.Schedule) error
	AwaitParams func() error
	// HasDynamicParams reports whether this iteration's graph declares any
	// DYNAMIC parameter; nil means "assume yes" (always wait).
	HasDynamicParams func() bool
}

// Orchestrator drives the per-iteration state machine of spec.md §4.11.
type Orchestrator struct {
	Config     *Config
	Path       GraphPath
	Phases     Phases
	Dispatcher *Dispatcher
	Log        hclog.Logger

	state    State
	schedule *sched.Schedule
	order    []int
}

// NewOrchestrator returns an Orchestrator in state IDLE.
func NewOrchestrator(cfg *Config, path GraphPath, phases Phases, dispatcher *Dispatcher, log hclog.Logger) *Orchestrator {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Orchestrator{Config: cfg, Path: path, Phases: phases, Dispatcher: dispatcher, Log: log, state: Idle}
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State { return o.state }

// Setup runs RESOLVING/TRANSFORMING/SCHEDULING/ALLOCATING once, ahead of
// the steady-state loop (spec.md §4.11 "Static graph path: RESOLVING and
// TRANSFORMING run once at setup"). Fast-JIT and dynamic paths call this
// again, internally, from RunIteration.
func (o *Orchestrator) Setup() error {
	o.state = Resolving
	if err := o.Phases.Resolve(); err != nil {
		return Fatal(PipelineInconsistent, "resolve", err)
	}

	o.state = Transforming
	if err := o.Phases.Transform(); err != nil {
		return Fatal(PipelineInconsistent, "transform", err)
	}

	o.state = Scheduling
	sc, order, err := o.Phases.Schedule()
	if err != nil {
		return Fatal(NoEligiblePE, "schedule", err)
	}

	o.state = Allocating
	if err := o.Phases.Allocate(sc); err != nil {
		return Fatal(OutOfStack, "allocate", err)
	}

	o.schedule = sc
	o.order = order
	o.state = Idle
	return nil
}

// RunIteration executes one iteration along o.Path, returning to IDLE on
// success. On any phase failure it aborts in-flight jobs via Reset and
// returns the fatal error (spec.md §4.11's failure semantics: "There is
// no retry").
func (o *Orchestrator) RunIteration(predecessorsOf func(taskIx int) []int, kernelOf func(taskIx int) (int, uint32)) error {
	switch o.Path {
	case FastJITPath, DynamicPath:
		if err := o.Setup(); err != nil {
			o.Abort()
			return err
		}
		wait := o.Phases.HasDynamicParams == nil || o.Phases.HasDynamicParams()
		if wait {
			o.state = AwaitingParams
			if err := o.Phases.AwaitParams(); err != nil {
				o.Abort()
				return Fatal(TransportError, "await_params", err)
			}
		}
		if o.Path == DynamicPath {
			// Re-enter RESOLVING for the now-unblocked subtree; the caller
			// drives the next RunIteration call (spec.md §4.11 "the cycle
			// re-enters RESOLVING for that subtree").
			o.state = Resolving
			return nil
		}
	case StaticPath:
		if o.schedule == nil {
			if err := o.Setup(); err != nil {
				o.Abort()
				return err
			}
		}
	}

	o.state = Dispatching
	if err := o.Dispatcher.DispatchSchedule(o.schedule, o.order, predecessorsOf, kernelOf); err != nil {
		o.Abort()
		return err
	}

	o.state = Completing
	o.state = Idle
	return nil
}

// Abort sends a RESET job to every runner the Dispatcher has ever sent a
// real job to (spec.md §5 "sends a RESET to each runner"). Failures here
// are logged, not propagated: the iteration has already failed and Abort
// is best-effort cleanup.
func (o *Orchestrator) Abort() {
	for runnerIx := range o.Dispatcher.lastJobOnPE {
		if err := o.Dispatcher.Communicator.SendJob(runnerIx, rtmsg.JobMessage{KernelIx: ResetKernelIx}); err != nil {
			o.Log.Warn("reset delivery failed", "runner", runnerIx, "error", err)
		}
	}
}
