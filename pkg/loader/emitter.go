package loader

import (
	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
)

// Emitter is the external code-emitter collaborator: a black box that,
// given a descriptor and target backend, produces a (source_text,
// metadata) pair. The IR optimizer and the emitters themselves are out
// of scope (spec §1) — this interface is the seam the loader calls
// across.
type Emitter interface {
	Emit(descriptor gputypes.KernelDescriptor, backend gputypes.Backend) (source []byte, entryPoint kernel.EntryPoint, languageVersion string, err error)
}

// EmitterFunc adapts a plain function to the Emitter interface.
type EmitterFunc func(gputypes.KernelDescriptor, gputypes.Backend) ([]byte, kernel.EntryPoint, string, error)

func (f EmitterFunc) Emit(d gputypes.KernelDescriptor, b gputypes.Backend) ([]byte, kernel.EntryPoint, string, error) {
	return f(d, b)
}
