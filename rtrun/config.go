package rtrun

import (
	"github.com/preesm/spider2-sub007/rtlog"
	"github.com/preesm/spider2-sub007/sched"
	"github.com/preesm/spider2-sub007/stack"
)

// FifoAllocatorKind selects the FIFO allocator variant (spec.md §6 "fifo
// allocator kind ∈ {DEFAULT, DEFAULT_NOSYNC, SRDAG_DEFAULT}").
type FifoAllocatorKind uint8

const (
	FifoDefault FifoAllocatorKind = iota
	FifoDefaultNoSync
	FifoSRDAGDefault
)

// Config is the runtime's immutable configuration, built once via
// WithXxx options (teacher's functional-option pattern, e.g.
// builder.BuilderOption) rather than package-level mutable state.
type Config struct {
	StackPolicies   map[stack.ID]stack.Policy
	SchedulerPolicy sched.Policy
	ExecutionPolicy ExecutionPolicy
	FifoAllocator   FifoAllocatorKind
	TraceEnabled    bool
	LoggerEnabled   map[rtlog.Type]bool
}

// Option configures a Config.
type Option func(*Config)

// NewConfig builds a Config from opts, defaulting every stack to
// FreelistStatic, scheduler to PolicyList, execution to Delayed, fifo
// allocator to FifoDefault, tracing off, and every logger type enabled.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		StackPolicies: map[stack.ID]stack.Policy{
			stack.IDGeneral:    stack.FreelistStatic,
			stack.IDTransfo:    stack.FreelistStatic,
			stack.IDSchedule:   stack.FreelistStatic,
			stack.IDRuntime:    stack.FreelistStatic,
			stack.IDExprParser: stack.FreelistStatic,
			stack.IDArchi:      stack.FreelistStatic,
		},
		SchedulerPolicy: sched.PolicyList,
		ExecutionPolicy: Delayed,
		FifoAllocator:   FifoDefault,
		LoggerEnabled: map[rtlog.Type]bool{
			rtlog.General: true, rtlog.Transfo: true, rtlog.Schedule: true,
			rtlog.Memory: true, rtlog.Runtime: true, rtlog.Optimizer: true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithStackPolicy overrides one stack ID's allocation policy.
func WithStackPolicy(id stack.ID, p stack.Policy) Option {
	return func(c *Config) { c.StackPolicies[id] = p }
}

// WithSchedulerPolicy overrides the scheduler policy.
func WithSchedulerPolicy(p sched.Policy) Option {
	return func(c *Config) { c.SchedulerPolicy = p }
}

// WithExecutionPolicy overrides DELAYED/JIT_SEND dispatch timing.
func WithExecutionPolicy(p ExecutionPolicy) Option {
	return func(c *Config) { c.ExecutionPolicy = p }
}

// WithFifoAllocator overrides the FIFO allocator variant.
func WithFifoAllocator(k FifoAllocatorKind) Option {
	return func(c *Config) { c.FifoAllocator = k }
}

// WithTrace toggles the trace/Gantt-export flag.
func WithTrace(enabled bool) Option {
	return func(c *Config) { c.TraceEnabled = enabled }
}

// WithLoggerEnabled toggles one logger Type on or off.
func WithLoggerEnabled(t rtlog.Type, enabled bool) Option {
	return func(c *Config) { c.LoggerEnabled[t] = enabled }
}
