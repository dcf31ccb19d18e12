package stream

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/orneryd/gpurt/pkg/mapper"
)

// State is the user-visible dispatch state of an AsyncLaunch. The
// source's Submitted/Executing/Complete machinery collapses into
// Pending until a terminal state is reached, per spec §4.6.
type State int32

const (
	StatePending State = iota
	StateDone
	StateDoneErr
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDone:
		return "done"
	case StateDoneErr:
		return "done_err"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// AsyncLaunch wraps one stream enqueue in a cancellable completion
// future. Enqueue is synchronous and fast; the future itself is backed
// by a background goroutine awaiting the stream's per-sequence
// completion channel — cancellation affects only this host-side future,
// never the underlying device work, which always runs to completion
// (spec §4.7).
type AsyncLaunch struct {
	ID     uuid.UUID
	stream *Stream
	seq    uint64

	state   atomic.Int32
	doneCh  chan struct{}
	err     error
	cancel  chan struct{}
	cancelOnce sync.Once
}

// Launch enqueues launcher on s and returns an AsyncLaunch future for
// it. The future's ID is a fresh uuid, useful for log correlation
// across the enqueue/execute/complete lifecycle of one dispatch.
func Launch(s *Stream, launcher Launcher, cfg Config, args []mapper.Value) (*AsyncLaunch, error) {
	seq, done, err := s.Enqueue(launcher, cfg, args)
	if err != nil {
		return nil, err
	}
	al := &AsyncLaunch{
		ID:     uuid.New(),
		stream: s,
		seq:    seq,
		doneCh: make(chan struct{}),
		cancel: make(chan struct{}),
	}
	go al.await(done)
	return al, nil
}

func (al *AsyncLaunch) await(done <-chan error) {
	select {
	case err := <-done:
		al.err = err
		if err != nil {
			al.state.Store(int32(StateDoneErr))
		} else {
			al.state.Store(int32(StateDone))
		}
	case <-al.cancel:
		// Host future completes as Cancelled immediately; the device
		// work behind `done` is not revoked and keeps running — we
		// simply stop waiting on it here.
		al.state.Store(int32(StateCancelled))
	}
	close(al.doneCh)
}

// Cancel requests cancellation of the host-side future. It never
// affects in-flight device work: per spec §4.7, GPU work cannot be
// revoked once submitted, so Stream.Synchronize still observes it
// complete.
func (al *AsyncLaunch) Cancel() {
	al.cancelOnce.Do(func() { close(al.cancel) })
}

// State returns the future's current dispatch state.
func (al *AsyncLaunch) State() State { return State(al.state.Load()) }

// Wait blocks until the future reaches a terminal state and returns its
// error, if any (nil for Done and Cancelled).
func (al *AsyncLaunch) Wait() error {
	<-al.doneCh
	if al.State() == StateDoneErr {
		return al.err
	}
	return nil
}

// Done returns a channel closed once the future reaches a terminal
// state, for use in select statements alongside other events.
func (al *AsyncLaunch) Done() <-chan struct{} { return al.doneCh }

// WhenAll returns a channel closed once every future in futures has
// reached a terminal state. It respects each future's own cancellation
// token — WhenAll itself has no cancellation of its own beyond that.
func WhenAll(futures ...*AsyncLaunch) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for _, f := range futures {
			<-f.Done()
		}
	}()
	return out
}

// WhenAny returns a channel that receives the index of the first future
// in futures to reach a terminal state.
func WhenAny(futures ...*AsyncLaunch) <-chan int {
	out := make(chan int, 1)
	for i, f := range futures {
		go func(i int, f *AsyncLaunch) {
			<-f.Done()
			select {
			case out <- i:
			default:
			}
		}(i, f)
	}
	return out
}
