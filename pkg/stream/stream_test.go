package stream_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/mapper"
	"github.com/orneryd/gpurt/pkg/stream"
)

func testAccelerator() *gputypes.Accelerator {
	return gputypes.NewAccelerator(gputypes.BackendCPU, "dev0", "test-cpu", gputypes.Capabilities{}, nil)
}

func TestSynchronizeBlocksUntilDrained(t *testing.T) {
	s := stream.New(testAccelerator(), 0)
	defer s.Close()

	var ran atomic32
	_, done, err := s.Enqueue(func(cfg stream.Config, args []mapper.Value) error {
		time.Sleep(10 * time.Millisecond)
		ran.set(1)
		return nil
	}, stream.Config{}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Synchronize())
	assert.Equal(t, int32(1), ran.get())
	<-done
}

func TestAsyncCompletionOrdering(t *testing.T) {
	// spec §8 scenario 6: enqueue A then B; B's future completes only
	// after A's; cancelling B's token mid-flight leaves B Cancelled
	// while synchronize() on the stream still completes successfully.
	s := stream.New(testAccelerator(), 0)
	defer s.Close()

	var mu sync.Mutex
	var order []string

	slowA := func(cfg stream.Config, args []mapper.Value) error {
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		order = append(order, "A")
		mu.Unlock()
		return nil
	}
	fastB := func(cfg stream.Config, args []mapper.Value) error {
		mu.Lock()
		order = append(order, "B")
		mu.Unlock()
		return nil
	}

	launchA, err := stream.Launch(s, slowA, stream.Config{}, nil)
	require.NoError(t, err)
	launchB, err := stream.Launch(s, fastB, stream.Config{}, nil)
	require.NoError(t, err)

	launchB.Cancel()

	require.NoError(t, launchA.Wait())
	_ = launchB.Wait()

	mu.Lock()
	gotOrder := append([]string(nil), order...)
	mu.Unlock()
	assert.Equal(t, []string{"A", "B"}, gotOrder, "same-stream ops execute in submission order regardless of future cancellation")

	require.NoError(t, s.Synchronize(), "device work runs to completion even though B's future was cancelled")
}

func TestWhenAllWaitsForEveryFuture(t *testing.T) {
	s := stream.New(testAccelerator(), 0)
	defer s.Close()

	noop := func(cfg stream.Config, args []mapper.Value) error { return nil }
	l1, _ := stream.Launch(s, noop, stream.Config{}, nil)
	l2, _ := stream.Launch(s, noop, stream.Config{}, nil)

	select {
	case <-stream.WhenAll(l1, l2):
	case <-time.After(time.Second):
		t.Fatal("WhenAll did not complete in time")
	}
	assert.Equal(t, stream.StateDone, l1.State())
	assert.Equal(t, stream.StateDone, l2.State())
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	s := stream.New(testAccelerator(), 0)
	require.NoError(t, s.Close())

	_, _, err := s.Enqueue(func(stream.Config, []mapper.Value) error { return nil }, stream.Config{}, nil)
	assert.ErrorIs(t, err, stream.ErrStreamDisposed)
}

// atomic32 is a tiny test helper avoiding an import of sync/atomic's
// Int32 type directly in the test body for readability.
type atomic32 struct {
	mu sync.Mutex
	v  int32
}

func (a *atomic32) set(v int32) {
	a.mu.Lock()
	a.v = v
	a.mu.Unlock()
}

func (a *atomic32) get() int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.v
}
