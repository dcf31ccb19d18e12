// Package cpu implements the CPU backend: a compiled kernel is a Go
// callable invoked once per synthesized thread index, the in-process
// analog of OpenCL's EnqueueNativeKernel (see
// _examples/opencl-go-cl12/kernel.go's EnqueueNativeKernel and its
// cl12GoKernelNativeCallback export) generalized from a cgo callback
// into a native Go closure — there is no driver boundary to cross on
// this backend, so the callback trampoline collapses to a direct call.
package cpu

import (
	"errors"
	"fmt"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
	"github.com/orneryd/gpurt/pkg/mapper"
	"github.com/orneryd/gpurt/pkg/stream"
)

// ErrNoNativeCallback is returned when a kernel compiled for the CPU
// backend has no Go callable registered for it. The CPU backend never
// parses source text — the emitter's "source" for this backend is just
// an opaque registry key.
var ErrNoNativeCallback = errors.New("cpu: no native callback registered for this kernel")

// NativeKernel is the Go callable a CPU kernel ultimately runs: given
// the synthesized thread index and the marshalled argument list, it
// performs the kernel body's work.
type NativeKernel func(threadIndex uint64, args []mapper.Value) error

// registry maps the opaque key an Emitter embeds in CompiledKernel's
// Source bytes to the actual Go callable; the emitter and the caller
// that registers the callback must agree on this key out of band, the
// same way the source's IL emitter and device driver agree on a
// function pointer.
var registry = map[string]NativeKernel{}

// Register associates a native kernel implementation with key. Callers
// typically register a kernel's implementation once at program startup
// before any LoadKernel call reaches this backend.
func Register(key string, fn NativeKernel) {
	registry[key] = fn
}

// Dispatcher implements loader.Dispatcher for the CPU backend.
type Dispatcher struct{}

func (Dispatcher) Backend() gputypes.Backend { return gputypes.BackendCPU }

// NewLauncher builds a stream.Launcher that runs the registered native
// callback once per thread in the requested grid×block extent,
// synchronously within the stream's single worker goroutine — matching
// the CPU path's spec: "Launch is an in-process function call with a
// synthesized thread index."
func (Dispatcher) NewLauncher(compiled *kernel.Compiled, m *mapper.Mapper, accelerator *gputypes.Accelerator) (stream.Launcher, error) {
	key := string(compiled.Source)
	fn, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: key=%q", ErrNoNativeCallback, key)
	}

	return func(cfg stream.Config, args []mapper.Value) error {
		total := uint64(cfg.Grid[0]) * uint64(cfg.Grid[1]) * uint64(cfg.Grid[2]) *
			uint64(cfg.Block[0]) * uint64(cfg.Block[1]) * uint64(cfg.Block[2])
		if total == 0 {
			total = 1
		}
		for idx := uint64(0); idx < total; idx++ {
			if err := fn(idx, args); err != nil {
				return fmt.Errorf("cpu: native kernel failed at thread %d: %w", idx, err)
			}
		}
		return nil
	}, nil
}
