package loader

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/gpurt/pkg/cache"
	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
	"github.com/orneryd/gpurt/pkg/mapper"
	"github.com/orneryd/gpurt/pkg/stream"
)

// fakeDispatcher implements Dispatcher with a no-op launcher, counting
// how many times a launcher was actually built so tests can assert on
// compile-vs-cache-hit behavior.
type fakeDispatcher struct {
	backend      gputypes.Backend
	buildCount   int64
	failNewLauncher bool
}

func (f *fakeDispatcher) Backend() gputypes.Backend { return f.backend }

func (f *fakeDispatcher) NewLauncher(compiled *kernel.Compiled, m *mapper.Mapper, accelerator *gputypes.Accelerator) (stream.Launcher, error) {
	if f.failNewLauncher {
		return nil, errors.New("fakeDispatcher: forced NewLauncher failure")
	}
	atomic.AddInt64(&f.buildCount, 1)
	return func(cfg stream.Config, args []mapper.Value) error {
		return nil
	}, nil
}

func testRegistry() *cache.Registry {
	return cache.NewRegistry()
}

func testAccelerator(backend gputypes.Backend) *gputypes.Accelerator {
	return gputypes.NewAccelerator(backend, "0", "test device", gputypes.Capabilities{}, nil)
}

func simpleDescriptor(id string) gputypes.KernelDescriptor {
	return gputypes.KernelDescriptor{
		Identifier: id,
		Parameters: []gputypes.ParameterKind{
			gputypes.Primitive{BitWidth: 32, Signed: true},
		},
	}
}

func simpleEmitter(emitCount *int64) EmitterFunc {
	return func(d gputypes.KernelDescriptor, b gputypes.Backend) ([]byte, kernel.EntryPoint, string, error) {
		atomic.AddInt64(emitCount, 1)
		ep := kernel.EntryPoint{
			Name:       d.Identifier,
			Parameters: d.Parameters,
		}
		return []byte("source for " + d.Identifier), ep, "v1", nil
	}
}

func TestLoadKernelCachesAcrossCalls(t *testing.T) {
	var emitCount int64
	disp := &fakeDispatcher{backend: gputypes.BackendCPU}
	l := New(testRegistry(), simpleEmitter(&emitCount), map[gputypes.Backend]Dispatcher{gputypes.BackendCPU: disp}, "emitter-v1", "generic", cache.Options{})

	accel := testAccelerator(gputypes.BackendCPU)
	desc := simpleDescriptor("vector_add")

	first, err := l.LoadKernel(accel, desc)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := l.LoadKernel(accel, desc)
	require.NoError(t, err)

	assert.Same(t, first, second, "second load should be a cache hit returning the same CachedKernel")
	assert.Equal(t, int64(1), atomic.LoadInt64(&emitCount), "emitter should run exactly once")
	assert.Equal(t, int64(1), atomic.LoadInt64(&disp.buildCount), "launcher should be built exactly once")
}

func TestLoadKernelMissOnDifferentSpecialization(t *testing.T) {
	var emitCount int64
	disp := &fakeDispatcher{backend: gputypes.BackendCPU}
	l := New(testRegistry(), simpleEmitter(&emitCount), map[gputypes.Backend]Dispatcher{gputypes.BackendCPU: disp}, "emitter-v1", "generic", cache.Options{})

	accel := testAccelerator(gputypes.BackendCPU)
	descA := simpleDescriptor("vector_add")
	descB := simpleDescriptor("vector_add")
	descB.Specialization = gputypes.Specialization{Constants: map[string]string{"TILE": "32"}}

	_, err := l.LoadKernel(accel, descA)
	require.NoError(t, err)
	_, err = l.LoadKernel(accel, descB)
	require.NoError(t, err)

	assert.Equal(t, int64(2), atomic.LoadInt64(&emitCount), "distinct specializations should each compile")
}

func TestLoadKernelCompilationFailureNeverCaches(t *testing.T) {
	disp := &fakeDispatcher{backend: gputypes.BackendCPU}
	boom := errors.New("emitter exploded")
	failingEmitter := EmitterFunc(func(d gputypes.KernelDescriptor, b gputypes.Backend) ([]byte, kernel.EntryPoint, string, error) {
		return nil, kernel.EntryPoint{}, "", boom
	})
	l := New(testRegistry(), failingEmitter, map[gputypes.Backend]Dispatcher{gputypes.BackendCPU: disp}, "emitter-v1", "generic", cache.Options{})

	accel := testAccelerator(gputypes.BackendCPU)
	desc := simpleDescriptor("vector_add")

	_, err := l.LoadKernel(accel, desc)
	require.Error(t, err)
	var compErr *CompilationError
	require.True(t, errors.As(err, &compErr))
	assert.ErrorIs(t, err, ErrCompilation)
}

func TestLoadKernelRetriesAfterTransientFailure(t *testing.T) {
	disp := &fakeDispatcher{backend: gputypes.BackendCPU}
	var attempt int64
	flaky := EmitterFunc(func(d gputypes.KernelDescriptor, b gputypes.Backend) ([]byte, kernel.EntryPoint, string, error) {
		n := atomic.AddInt64(&attempt, 1)
		if n == 1 {
			return nil, kernel.EntryPoint{}, "", errors.New("transient emitter failure")
		}
		ep := kernel.EntryPoint{Name: d.Identifier, Parameters: d.Parameters}
		return []byte("source"), ep, "v1", nil
	})
	l := New(testRegistry(), flaky, map[gputypes.Backend]Dispatcher{gputypes.BackendCPU: disp}, "emitter-v1", "generic", cache.Options{})

	accel := testAccelerator(gputypes.BackendCPU)
	desc := simpleDescriptor("vector_add")

	_, err := l.LoadKernel(accel, desc)
	require.Error(t, err)

	ck, err := l.LoadKernel(accel, desc)
	require.NoError(t, err)
	require.NotNil(t, ck)
	assert.Equal(t, int64(2), atomic.LoadInt64(&attempt), "a failed compile must not poison the cache")
}

func TestLoadKernelUnknownBackend(t *testing.T) {
	var emitCount int64
	l := New(testRegistry(), simpleEmitter(&emitCount), map[gputypes.Backend]Dispatcher{}, "emitter-v1", "generic", cache.Options{})

	accel := testAccelerator(gputypes.BackendOpenCL)
	desc := simpleDescriptor("vector_add")

	_, err := l.LoadKernel(accel, desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dispatcher registered")
}

func TestLoadAutoGroupedMarksDescriptor(t *testing.T) {
	var emitCount int64
	var sawGrouped bool
	disp := &fakeDispatcher{backend: gputypes.BackendCPU}
	emitter := EmitterFunc(func(d gputypes.KernelDescriptor, b gputypes.Backend) ([]byte, kernel.EntryPoint, string, error) {
		atomic.AddInt64(&emitCount, 1)
		sawGrouped = d.ImplicitlyGrouped
		ep := kernel.EntryPoint{Name: d.Identifier, Parameters: d.Parameters}
		return []byte("source"), ep, "v1", nil
	})
	l := New(testRegistry(), emitter, map[gputypes.Backend]Dispatcher{gputypes.BackendCPU: disp}, "emitter-v1", "generic", cache.Options{})

	accel := testAccelerator(gputypes.BackendCPU)
	desc := simpleDescriptor("auto_grouped_kernel")

	ck, err := l.LoadAutoGrouped(accel, desc)
	require.NoError(t, err)
	assert.True(t, ck.Compiled.EntryPoint.ImplicitlyGrouped)
	assert.True(t, sawGrouped)
}

func TestLoadStreamKernelBindsStream(t *testing.T) {
	var emitCount int64
	disp := &fakeDispatcher{backend: gputypes.BackendCPU}
	l := New(testRegistry(), simpleEmitter(&emitCount), map[gputypes.Backend]Dispatcher{gputypes.BackendCPU: disp}, "emitter-v1", "generic", cache.Options{})

	accel := testAccelerator(gputypes.BackendCPU)
	desc := simpleDescriptor("vector_add")
	s := stream.New(accel, 0)
	defer s.Close()

	ck, err := l.LoadStreamKernel(accel, desc, s)
	require.NoError(t, err)
	assert.Same(t, s, ck.Stream)
}

func TestGetKernelReturnsCompiled(t *testing.T) {
	var emitCount int64
	disp := &fakeDispatcher{backend: gputypes.BackendCPU}
	l := New(testRegistry(), simpleEmitter(&emitCount), map[gputypes.Backend]Dispatcher{gputypes.BackendCPU: disp}, "emitter-v1", "generic", cache.Options{})

	accel := testAccelerator(gputypes.BackendCPU)
	desc := simpleDescriptor("vector_add")

	ck, err := l.LoadKernel(accel, desc)
	require.NoError(t, err)
	assert.Same(t, ck.Compiled, GetKernel(ck))
}
