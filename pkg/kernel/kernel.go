// Package kernel defines the immutable compiled-kernel artifact model:
// the backend-tagged source/blob produced by the external code-emitter,
// its ABI-level entry-point description, and optional diagnostics.
package kernel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/orneryd/gpurt/pkg/gputypes"
)

// EntryPoint is the ABI-level description of a kernel: its name, the
// parameter layout the code-emitter used, whether it consumes dynamic
// shared memory, and the index type used for an injected grouping
// extent argument (for implicitly-grouped kernels).
type EntryPoint struct {
	Name                    string
	Parameters              []gputypes.ParameterKind
	UsesDynamicSharedMemory bool
	KernelIndexType         *gputypes.Primitive

	// ImplicitlyGrouped marks an entry point whose thread grouping is
	// computed by the runtime; the mapper injects an extent argument
	// for such kernels (see design notes on implicitly grouped kernels).
	ImplicitlyGrouped bool

	// ExpectedBufferSize, when nonzero, is the code-emitter's own
	// computation of the PTX argument-buffer size. The mapper compares
	// its own computation against it and raises ErrLayoutMismatch on
	// divergence. Zero means "not reported; skip the check."
	ExpectedBufferSize int
}

// ImplicitlyGroupedSlotSize returns the byte size of the injected
// kernel-index-extent slot when ImplicitlyGrouped is set, using
// KernelIndexType's width if provided or a 64-bit default otherwise.
// Returns 0 when the entry point is not implicitly grouped.
func (e EntryPoint) ImplicitlyGroupedSlotSize() int {
	if !e.ImplicitlyGrouped {
		return 0
	}
	if e.KernelIndexType != nil {
		size := (e.KernelIndexType.BitWidth + 7) / 8
		if size > 0 {
			return size
		}
	}
	return 8
}

// Fingerprint returns a stable string identifying this entry point's
// ABI shape, used to detect code-emitter/mapper divergence.
func (e EntryPoint) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%t|", e.Name, e.UsesDynamicSharedMemory)
	for _, p := range e.Parameters {
		fmt.Fprintf(h, "%s,", p.Name())
	}
	if e.KernelIndexType != nil {
		fmt.Fprintf(h, "|idx:%s", e.KernelIndexType.Name())
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Info holds optional compiler diagnostics attached to a CompiledKernel
// (warnings, register usage, occupancy hints) — informational only, no
// field is load-bearing for dispatch correctness.
type Info struct {
	Diagnostics     []string
	RegisterCount   int
	SharedMemBytes  int
}

// Compiled is an immutable compiled-kernel artifact: once constructed,
// neither its source nor its entry-point layout mutates, and it is
// freely shareable across goroutines and accelerators of the same
// backend. Disposal is a no-op — the cache owns its lifetime.
type Compiled struct {
	Backend        gputypes.Backend
	Source         []byte
	EntryPoint     EntryPoint
	Info           *Info
	LanguageVersion string
}

// NewCompiled constructs a Compiled kernel artifact. source is either
// PTX assembly text, OpenCL C source text, or (for the CPU backend) a
// serialized marker value — the CPU backend attaches the actual Go
// callable out of band via pkg/backend/cpu's registry, since a Go
// function value cannot be embedded in a byte slice.
func NewCompiled(backend gputypes.Backend, source []byte, ep EntryPoint, languageVersion string, info *Info) *Compiled {
	return &Compiled{
		Backend:         backend,
		Source:          source,
		EntryPoint:      ep,
		Info:            info,
		LanguageVersion: languageVersion,
	}
}

// SourceHash returns a stable hash of the source blob, used for
// CompiledKernel equality (backend tag + source hash + entry-point
// fingerprint).
func (c *Compiled) SourceHash() string {
	h := sha256.Sum256(c.Source)
	return hex.EncodeToString(h[:])[:16]
}

// Equal reports whether two compiled kernels are equal by backend tag,
// source hash, and entry-point fingerprint — never by pointer identity.
func (c *Compiled) Equal(o *Compiled) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Backend == o.Backend &&
		c.SourceHash() == o.SourceHash() &&
		c.EntryPoint.Fingerprint() == o.EntryPoint.Fingerprint()
}

// Dispose is a no-op: the cache that holds a Compiled kernel owns its
// lifetime, and the artifact itself never allocates external resources.
func (c *Compiled) Dispose() {}
