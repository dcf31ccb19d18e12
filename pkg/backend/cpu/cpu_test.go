package cpu

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
	"github.com/orneryd/gpurt/pkg/mapper"
	"github.com/orneryd/gpurt/pkg/stream"
)

func testAccelerator() *gputypes.Accelerator {
	return gputypes.NewAccelerator(gputypes.BackendCPU, "0", "host", gputypes.Capabilities{}, nil)
}

func testCompiled(t *testing.T, key string) *kernel.Compiled {
	t.Helper()
	ep := kernel.EntryPoint{Name: "increment"}
	return kernel.NewCompiled(gputypes.BackendCPU, []byte(key), ep, "", nil)
}

func TestDispatcherBackend(t *testing.T) {
	assert.Equal(t, gputypes.BackendCPU, Dispatcher{}.Backend())
}

func TestNewLauncherRunsOncePerThread(t *testing.T) {
	var calls int64
	Register("increment-test", func(threadIndex uint64, args []mapper.Value) error {
		atomic.AddInt64(&calls, 1)
		return nil
	})

	compiled := testCompiled(t, "increment-test")
	ep := compiled.EntryPoint
	m, err := mapper.New(gputypes.BackendCPU, nil, ep)
	require.NoError(t, err)

	launcher, err := Dispatcher{}.NewLauncher(compiled, m, testAccelerator())
	require.NoError(t, err)

	cfg := stream.Config{Grid: [3]uint32{2, 1, 1}, Block: [3]uint32{4, 1, 1}}
	require.NoError(t, launcher(cfg, nil))
	assert.Equal(t, int64(8), atomic.LoadInt64(&calls))
}

func TestNewLauncherMissingCallback(t *testing.T) {
	compiled := testCompiled(t, "never-registered")
	ep := compiled.EntryPoint
	m, err := mapper.New(gputypes.BackendCPU, nil, ep)
	require.NoError(t, err)

	_, err = Dispatcher{}.NewLauncher(compiled, m, testAccelerator())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoNativeCallback))
}

func TestNewLauncherZeroExtentRunsOnce(t *testing.T) {
	var calls int64
	Register("zero-extent-test", func(threadIndex uint64, args []mapper.Value) error {
		atomic.AddInt64(&calls, 1)
		return nil
	})

	compiled := testCompiled(t, "zero-extent-test")
	ep := compiled.EntryPoint
	m, err := mapper.New(gputypes.BackendCPU, nil, ep)
	require.NoError(t, err)

	launcher, err := Dispatcher{}.NewLauncher(compiled, m, testAccelerator())
	require.NoError(t, err)

	require.NoError(t, launcher(stream.Config{}, nil))
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestNewLauncherPropagatesCallbackError(t *testing.T) {
	boom := errors.New("boom")
	Register("failing-test", func(threadIndex uint64, args []mapper.Value) error {
		return boom
	})

	compiled := testCompiled(t, "failing-test")
	ep := compiled.EntryPoint
	m, err := mapper.New(gputypes.BackendCPU, nil, ep)
	require.NoError(t, err)

	launcher, err := Dispatcher{}.NewLauncher(compiled, m, testAccelerator())
	require.NoError(t, err)

	err = launcher(stream.Config{Grid: [3]uint32{1, 1, 1}, Block: [3]uint32{1, 1, 1}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}
