package opencl

import (
	"fmt"
	"sync"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
	"github.com/orneryd/gpurt/pkg/mapper"
	"github.com/orneryd/gpurt/pkg/stream"
)

// compiledProgram bundles a built cl_program with the cl_kernel handles
// created from it, so a Dispatcher only ever builds a given source once
// no matter how many entry points within it get loaded.
type compiledProgram struct {
	prog    *program
	kernels map[string]*kernelHandle
}

// Dispatcher implements loader.Dispatcher for the OpenCL backend. Like
// the PTX dispatcher, it caches built programs per source hash since
// clBuildProgram is the expensive step.
type Dispatcher struct {
	mu       sync.Mutex
	programs map[string]*compiledProgram
}

// New returns a ready-to-use OpenCL Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{programs: make(map[string]*compiledProgram)}
}

func (d *Dispatcher) Backend() gputypes.Backend { return gputypes.BackendOpenCL }

func (d *Dispatcher) kernelFor(compiled *kernel.Compiled) (*program, *kernelHandle, error) {
	key := compiled.SourceHash()
	entryName := compiled.EntryPoint.Name

	d.mu.Lock()
	defer d.mu.Unlock()

	cp, ok := d.programs[key]
	if !ok {
		prog, err := buildProgram(compiled.Source, buildOptionsFor(compiled.LanguageVersion))
		if err != nil {
			return nil, nil, err
		}
		cp = &compiledProgram{prog: prog, kernels: make(map[string]*kernelHandle)}
		d.programs[key] = cp
	}

	kn, ok := cp.kernels[entryName]
	if !ok {
		var err error
		kn, err = createKernel(cp.prog, entryName)
		if err != nil {
			return nil, nil, err
		}
		cp.kernels[entryName] = kn
	}
	return cp.prog, kn, nil
}

// NewLauncher binds compiled to a built program and kernel handle and
// returns a stream.Launcher that marshals arguments via clSetKernelArg
// and enqueues an N-dimensional range sized from cfg's grid and block
// extents.
func (d *Dispatcher) NewLauncher(compiled *kernel.Compiled, m *mapper.Mapper, accelerator *gputypes.Accelerator) (stream.Launcher, error) {
	if compiled.Backend != gputypes.BackendOpenCL {
		return nil, fmt.Errorf("opencl: dispatcher received a %s kernel", compiled.Backend)
	}
	prog, kn, err := d.kernelFor(compiled)
	if err != nil {
		return nil, fmt.Errorf("opencl: preparing kernel %q: %w", compiled.EntryPoint.Name, err)
	}

	return func(cfg stream.Config, args []mapper.Value) error {
		extent := uint64(cfg.Grid[0]) * uint64(cfg.Grid[1]) * uint64(cfg.Grid[2])

		var sharedBuffer []byte
		sharedSize := uint64(cfg.SharedMemBytes)
		if compiled.EntryPoint.UsesDynamicSharedMemory {
			sharedBuffer = make([]byte, cfg.SharedMemBytes)
		}

		argSetter := func(index int, size int, value []byte) int {
			return setArg(kn, index, size, value)
		}
		if err := m.MarshalSetArgs(extent, sharedBuffer, sharedSize, args, argSetter); err != nil {
			return fmt.Errorf("opencl: marshalling arguments: %w", err)
		}

		global := [3]uint64{
			uint64(cfg.Grid[0]) * uint64(cfg.Block[0]),
			uint64(cfg.Grid[1]) * uint64(cfg.Block[1]),
			uint64(cfg.Grid[2]) * uint64(cfg.Block[2]),
		}
		local := [3]uint64{uint64(cfg.Block[0]), uint64(cfg.Block[1]), uint64(cfg.Block[2])}

		if err := enqueueNDRange(prog, kn, 3, global, local); err != nil {
			return fmt.Errorf("opencl: enqueuing %q: %w", compiled.EntryPoint.Name, err)
		}
		return nil
	}, nil
}

// Close releases every kernel and program this dispatcher has built.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for key, cp := range d.programs {
		for name, kn := range cp.kernels {
			if err := releaseKernel(kn); err != nil && firstErr == nil {
				firstErr = err
			}
			delete(cp.kernels, name)
		}
		if err := releaseProgram(cp.prog); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.programs, key)
	}
	return firstErr
}
