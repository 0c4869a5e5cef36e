package scheduler

import "sync"

// Future is a single-assignment awaitable result.
//
// A routine yields a Future to the scheduler (via Thread.Await or by
// yielding it raw) and is resumed with the settled value once Done()
// closes. Futures are the only true suspension points in playback: image,
// font and video loads settle them from loader goroutines.
//
// Thread-safety: Resolve/Reject may be called from any goroutine; the
// first settle wins and later calls are ignored.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewFuture creates an unsettled Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a Future already settled with v.
func Resolved(v any) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// Rejected returns a Future already failed with err.
func Rejected(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Resolve settles the Future with a value. No-op if already settled.
func (f *Future) Resolve(v any) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// Reject settles the Future with an error. No-op if already settled.
func (f *Future) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the Future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled value or error.
// Only valid after Done() is closed.
func (f *Future) Result() (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		return nil, ErrPending
	}
}
