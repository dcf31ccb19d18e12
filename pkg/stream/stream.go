// Package stream implements the device command-queue abstraction (spec
// §4.6) and the cancellable completion future layered over it (spec
// §4.7). A Stream owns a single background worker goroutine that drains
// enqueued launches strictly in submission order — the systems-language
// rendering of "single-queue ordered execution per device stream" (spec
// §5) without needing a real driver handle underneath.
package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/mapper"
)

// Config carries the launch-time grid/block shape and shared-memory
// request, the systems-language analog of the source's launch
// configuration object.
type Config struct {
	Grid           [3]uint32
	Block          [3]uint32
	SharedMemBytes uint32
}

// Launcher is a callable bound at load time to a specific
// CompiledKernel and Mapper; calling it performs argument marshalling
// and the actual device enqueue. It never blocks on stream-wide
// synchronization — only on the backend's own enqueue call, which spec
// requires to be fast.
type Launcher func(cfg Config, args []mapper.Value) error

type job struct {
	seq      uint64
	launcher Launcher
	cfg      Config
	args     []mapper.Value
	done     chan error
}

// Stream is a device-owned queue handle with a back-reference to its
// parent accelerator and a monotonic sequence counter. Streams are
// shared by whatever component created them; destroying one while an
// AsyncLaunch future still references it is a program error (spec §3).
type Stream struct {
	accelerator *gputypes.Accelerator

	jobs chan job
	seq  uint64 // next sequence number to assign, atomic

	mu          sync.Mutex
	completedSeq uint64
	waiters      map[uint64][]chan struct{}

	closed atomic.Bool
	workerDone chan struct{}
}

// New creates a Stream bound to accelerator with the given queue depth
// (backlog capacity before Enqueue blocks — a finite queue mirrors a
// real hardware command queue's finite depth). A depth of 0 chooses a
// sensible default.
func New(accelerator *gputypes.Accelerator, depth int) *Stream {
	if depth <= 0 {
		depth = 256
	}
	s := &Stream{
		accelerator: accelerator,
		jobs:        make(chan job, depth),
		waiters:     make(map[uint64][]chan struct{}),
		workerDone:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Accelerator returns the stream's parent accelerator.
func (s *Stream) Accelerator() *gputypes.Accelerator { return s.accelerator }

func (s *Stream) run() {
	defer close(s.workerDone)
	for j := range s.jobs {
		err := j.launcher(j.cfg, j.args)
		j.done <- err
		close(j.done)

		s.mu.Lock()
		s.completedSeq = j.seq
		for _, ch := range s.waiters[j.seq] {
			close(ch)
		}
		delete(s.waiters, j.seq)
		s.mu.Unlock()
	}
}

// Enqueue queues launcher for execution with cfg/args and returns
// immediately with the assigned sequence number and a channel that
// receives exactly one value (the launch's error, nil on success) once
// the worker has executed it. Enqueue itself never blocks on device
// completion — only (rarely) on queue backlog.
func (s *Stream) Enqueue(launcher Launcher, cfg Config, args []mapper.Value) (uint64, <-chan error, error) {
	if s.closed.Load() {
		return 0, nil, ErrStreamDisposed
	}
	seq := atomic.AddUint64(&s.seq, 1)
	done := make(chan error, 1)
	// A full queue blocks here, mirroring a real command queue
	// backpressuring its submitter when the device backlog is deep.
	s.jobs <- job{seq: seq, launcher: launcher, cfg: cfg, args: args, done: done}
	return seq, done, nil
}

// Synchronize blocks until every launch enqueued so far has completed.
func (s *Stream) Synchronize() error {
	target := atomic.LoadUint64(&s.seq)
	return s.waitFor(context.Background(), target)
}

// SynchronizeAsync returns a channel closed once every launch enqueued
// so far has completed; it never blocks the calling goroutine.
func (s *Stream) SynchronizeAsync() <-chan struct{} {
	target := atomic.LoadUint64(&s.seq)
	return s.waitChannel(target)
}

// waitFor blocks the calling goroutine until seq has completed or ctx
// is cancelled.
func (s *Stream) waitFor(ctx context.Context, seq uint64) error {
	ch := s.waitChannel(seq)
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitChannel returns a channel that closes once seq has completed. If
// seq has already completed, it returns an already-closed channel.
func (s *Stream) waitChannel(seq uint64) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == 0 || s.completedSeq >= seq {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	ch := make(chan struct{})
	s.waiters[seq] = append(s.waiters[seq], ch)
	return ch
}

// Close stops accepting new work and waits for the worker to drain the
// queue and exit. Calling Close while an AsyncLaunch future still
// references the stream is a program error, per spec §3.
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.jobs)
	<-s.workerDone
	return nil
}

func (s *Stream) String() string {
	return fmt.Sprintf("Stream(accelerator=%s)", s.accelerator.DeviceName())
}
