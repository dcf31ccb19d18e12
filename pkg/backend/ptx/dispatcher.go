package ptx

import (
	"fmt"
	"sync"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
	"github.com/orneryd/gpurt/pkg/mapper"
	"github.com/orneryd/gpurt/pkg/stream"
)

// Dispatcher implements loader.Dispatcher for the PTX backend. It owns
// a per-source module cache, since loadModule is comparatively
// expensive (PTX parsing and JIT) and a Loader reuses the same
// *kernel.Compiled for every launch of a given kernel.
type Dispatcher struct {
	mu      sync.Mutex
	modules map[string]*module
}

// New returns a ready-to-use PTX Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{modules: make(map[string]*module)}
}

func (d *Dispatcher) Backend() gputypes.Backend { return gputypes.BackendPTX }

func (d *Dispatcher) moduleFor(compiled *kernel.Compiled) (*module, error) {
	key := compiled.SourceHash()

	d.mu.Lock()
	defer d.mu.Unlock()
	if mod, ok := d.modules[key]; ok {
		return mod, nil
	}
	mod, err := loadModule(compiled.Source)
	if err != nil {
		return nil, err
	}
	d.modules[key] = mod
	return mod, nil
}

// NewLauncher binds compiled to a loaded module and returns a
// stream.Launcher that marshals arguments into the PTX buffer-mode
// layout and dispatches via cuLaunchKernel's extra-args mechanism.
func (d *Dispatcher) NewLauncher(compiled *kernel.Compiled, m *mapper.Mapper, accelerator *gputypes.Accelerator) (stream.Launcher, error) {
	if compiled.Backend != gputypes.BackendPTX {
		return nil, fmt.Errorf("ptx: dispatcher received a %s kernel", compiled.Backend)
	}
	mod, err := d.moduleFor(compiled)
	if err != nil {
		return nil, fmt.Errorf("ptx: loading module: %w", err)
	}
	entryName := compiled.EntryPoint.Name

	return func(cfg stream.Config, args []mapper.Value) error {
		extent := uint64(cfg.Grid[0]) * uint64(cfg.Grid[1]) * uint64(cfg.Grid[2])
		buf, err := m.MarshalBuffer(extent, args)
		if err != nil {
			return fmt.Errorf("ptx: marshalling arguments: %w", err)
		}
		if err := launch(mod, entryName, cfg.Grid, cfg.Block, cfg.SharedMemBytes, buf); err != nil {
			return fmt.Errorf("ptx: launching %q: %w", entryName, err)
		}
		return nil
	}, nil
}

// Close releases every module this dispatcher has loaded. Safe to call
// once an accelerator is being torn down.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for key, mod := range d.modules {
		if err := unloadModule(mod); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.modules, key)
	}
	return firstErr
}
