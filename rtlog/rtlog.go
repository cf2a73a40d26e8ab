// Package rtlog provides the core's logging abstraction.
//
// Every component takes a named sub-logger instead of calling a package-level
// logger directly, so a disabled logger type (§6 "logger enable-by-type
// flag") is simply a sub-logger backed by hclog's discard sink rather than a
// branch scattered across call sites.
package rtlog

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Type names one of the logger categories the runtime recognizes.
// They mirror the source's per-type enable flags (MEMORY, SCHEDULE, ...).
type Type string

const (
	General    Type = "general"
	Transfo    Type = "transfo"
	Schedule   Type = "schedule"
	Memory     Type = "memory"
	Runtime    Type = "runtime"
	Optimizer  Type = "optimizer"
)

// Registry resolves a Type to an hclog.Logger, honoring a per-type
// enable/disable table. A disabled type yields hclog.NewNullLogger().
type Registry struct {
	base    hclog.Logger
	enabled map[Type]bool
}

// NewRegistry builds a Registry writing to w (os.Stderr if nil) with all
// types enabled by default.
func NewRegistry(w io.Writer) *Registry {
	if w == nil {
		w = os.Stderr
	}
	return &Registry{
		base: hclog.New(&hclog.LoggerOptions{
			Name:   "spider2",
			Output: w,
			Level:  hclog.Info,
		}),
		enabled: map[Type]bool{
			General: true, Transfo: true, Schedule: true,
			Memory: true, Runtime: true, Optimizer: true,
		},
	}
}

// SetEnabled toggles whether loggers of Type t emit anything.
func (r *Registry) SetEnabled(t Type, on bool) {
	r.enabled[t] = on
}

// For returns a named sub-logger for t. If t is disabled, the returned
// logger discards everything; callers never need to check the flag
// themselves.
func (r *Registry) For(t Type) hclog.Logger {
	if r.enabled[t] {
		return r.base.Named(string(t))
	}
	return hclog.NewNullLogger()
}
