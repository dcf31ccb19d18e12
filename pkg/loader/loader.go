// Package loader implements the entry API of the runtime (spec §4.8):
// given an accelerator and a kernel descriptor, produce a cached or
// freshly compiled, mapper-bound launcher ready to dispatch on a
// stream.
package loader

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/gpurt/pkg/cache"
	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
	"github.com/orneryd/gpurt/pkg/mapper"
	"github.com/orneryd/gpurt/pkg/stream"
)

// Dispatcher binds a compiled kernel and its mapper to one backend's
// concrete launch mechanics, producing a stream.Launcher closure. Each
// pkg/backend/{ptx,opencl,cpu} package provides one implementation.
type Dispatcher interface {
	Backend() gputypes.Backend
	NewLauncher(compiled *kernel.Compiled, m *mapper.Mapper, accelerator *gputypes.Accelerator) (stream.Launcher, error)
}

// CachedKernel is the handle LoadKernel and friends return: the
// compiled artifact, its bound launcher, and (for LoadStreamKernel) the
// accelerator's default stream.
type CachedKernel struct {
	DispatchID uuid.UUID
	Compiled   *kernel.Compiled
	Launcher   stream.Launcher
	Stream     *stream.Stream // nil unless bound via LoadStreamKernel
}

// Loader is the entry API implementation. One Loader is typically
// shared process-wide, backed by the global AcceleratorKernelCache
// registry, but tests construct private instances for isolation.
type Loader struct {
	registry           *cache.Registry
	emitter            Emitter
	dispatchers        map[gputypes.Backend]Dispatcher
	codeEmitterVersion string
	targetArchitecture string
	cacheOpts          cache.Options
}

// New constructs a Loader. dispatchers must contain an entry for every
// backend the caller intends to load kernels for.
func New(registry *cache.Registry, emitter Emitter, dispatchers map[gputypes.Backend]Dispatcher, codeEmitterVersion, targetArchitecture string, cacheOpts cache.Options) *Loader {
	return &Loader{
		registry:           registry,
		emitter:            emitter,
		dispatchers:        dispatchers,
		codeEmitterVersion: codeEmitterVersion,
		targetArchitecture: targetArchitecture,
		cacheOpts:          cacheOpts,
	}
}

// versionString builds the composite tag that gates cache validity:
// "<code_emitter_version>_<target_architecture>_<backend>".
func (l *Loader) versionString(backend gputypes.Backend) string {
	return fmt.Sprintf("%s_%s_%s", l.codeEmitterVersion, l.targetArchitecture, backend)
}

// cacheKey builds the canonical cache key for a descriptor on
// accelerator: "<kernel_id>|<backend>|<device_fingerprint>|<param_type_fingerprint>|<specialization_hash>".
func cacheKey(descriptor gputypes.KernelDescriptor, accelerator *gputypes.Accelerator) cache.Key {
	return cache.BuildKey(
		descriptor.Identifier,
		accelerator.Backend().String(),
		accelerator.Fingerprint(),
		mapper.ParamTypeFingerprint(descriptor.Parameters),
		mapper.SpecializationHash(descriptor.Specialization),
	)
}

// LoadKernel builds the cache key, looks up the accelerator's cache,
// compiles on miss via the external emitter, constructs a mapper-bound
// launcher, and stores it. Compilation failure surfaces CompilationError
// unchanged and never populates the cache (spec §4.8).
func (l *Loader) LoadKernel(accelerator *gputypes.Accelerator, descriptor gputypes.KernelDescriptor) (*CachedKernel, error) {
	backend := accelerator.Backend()
	dispatcher, ok := l.dispatchers[backend]
	if !ok {
		return nil, fmt.Errorf("loader: no dispatcher registered for backend %s", backend)
	}

	kcache := l.registry.GetOrCreateCache(accelerator, l.cacheOpts)
	key := cacheKey(descriptor, accelerator)
	version := l.versionString(backend)

	if entry, ok, err := kcache.TryGet(key, version); err == nil && ok {
		if ck, ok := entry.Payload.(*CachedKernel); ok {
			return ck, nil
		}
	}

	source, ep, languageVersion, err := l.emitter.Emit(descriptor, backend)
	if err != nil {
		return nil, &CompilationError{Descriptor: descriptor.Identifier, Diagnostics: "code emitter failed", Cause: err}
	}
	ep.ImplicitlyGrouped = descriptor.ImplicitlyGrouped
	compiled := kernel.NewCompiled(backend, source, ep, languageVersion, nil)

	m, err := mapper.New(backend, descriptor.Parameters, ep)
	if err != nil {
		return nil, fmt.Errorf("loader: building argument mapper: %w", err)
	}

	launcher, err := dispatcher.NewLauncher(compiled, m, accelerator)
	if err != nil {
		return nil, fmt.Errorf("loader: building launcher: %w", err)
	}

	ck := &CachedKernel{
		DispatchID: uuid.New(),
		Compiled:   compiled,
		Launcher:   launcher,
	}

	if err := kcache.Put(key, ck, version, nil); err != nil {
		return nil, fmt.Errorf("loader: caching compiled kernel: %w", err)
	}
	return ck, nil
}

// LoadAutoGrouped loads descriptor with its entry point marked
// implicitly grouped, so the mapper reserves and injects the
// thread-grouping extent argument.
func (l *Loader) LoadAutoGrouped(accelerator *gputypes.Accelerator, descriptor gputypes.KernelDescriptor) (*CachedKernel, error) {
	descriptor.ImplicitlyGrouped = true
	return l.LoadKernel(accelerator, descriptor)
}

// LoadStreamKernel loads descriptor and binds the result to
// accelerator's default stream.
func (l *Loader) LoadStreamKernel(accelerator *gputypes.Accelerator, descriptor gputypes.KernelDescriptor, defaultStream *stream.Stream) (*CachedKernel, error) {
	ck, err := l.LoadKernel(accelerator, descriptor)
	if err != nil {
		return nil, err
	}
	ck.Stream = defaultStream
	return ck, nil
}

// GetKernel returns the compiled artifact backing a CachedKernel, for
// introspection.
func GetKernel(ck *CachedKernel) *kernel.Compiled {
	return ck.Compiled
}
