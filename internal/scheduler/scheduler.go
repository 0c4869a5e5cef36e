// Package scheduler drives a single animation routine as a cooperative
// thread pool.
//
// A routine is a resumable procedure (see Routine) that suspends at yield
// points. The Scheduler merges the root routine and every child it spawns
// into one advancing cursor: each call to Next resumes every live thread
// exactly once, in spawn order, and returns once all of them have parked
// at their next suspension point or completed.
//
// Determinism model:
//   - Exactly one thread runs at a time; the scheduler and the routine
//     goroutines hand control back and forth over unbuffered channels.
//   - Threads are stepped in spawn order, which never changes.
//   - Awaited Futures block the entire Next call until they settle, so a
//     frame is never produced from a half-resumed routine.
//
// There is no mid-frame cancellation: a caller that wants to abort simply
// stops calling Next (and should call Stop to unwind parked goroutines).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
)

// PoolHook observes changes to the thread pool's composition. It is
// invoked with the new pool size whenever a thread is spawned or joins.
// Purely observational; it must not call back into the scheduler.
type PoolHook func(size int)

// Scheduler advances one routine (and its spawned children) one
// scheduling step at a time.
//
// Not safe for concurrent use: Next, Stop and the accessors must be
// called from a single goroutine, matching the one-scene-at-a-time
// playback model.
type Scheduler struct {
	logger  *slog.Logger
	onPool  PoolHook
	threads []*Thread
	nextID  int
	stop    chan struct{}
	stopped bool
	done    bool
	err     error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithPoolHook registers a thread pool composition observer.
func WithPoolHook(h PoolHook) Option {
	return func(s *Scheduler) { s.onPool = h }
}

// New creates a Scheduler bound to a freshly invoked root routine.
// The routine does not run until the first Next call.
func New(root Routine, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: slog.Default(),
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.spawn(root)
	return s
}

// Next advances every live thread one step.
//
// It returns done=true exactly when the pool drains (or a routine fails);
// calls after that are no-ops that keep reporting done with a nil error.
// A routine returning an error is fatal: the scheduler stops, unwinds the
// remaining threads, and surfaces the error once.
func (s *Scheduler) Next(ctx context.Context) (bool, error) {
	if s.done {
		return true, nil
	}

	joined := false
	for i := 0; i < len(s.threads); i++ {
		t := s.threads[i]
		alive, err := s.step(ctx, t)
		if err != nil {
			s.fail(err)
			return true, err
		}
		if !alive {
			s.threads = append(s.threads[:i], s.threads[i+1:]...)
			joined = true
			i--
		}
	}
	if joined {
		s.notifyPool()
	}
	if len(s.threads) == 0 {
		s.done = true
		s.halt()
		return true, nil
	}
	return false, nil
}

// step resumes one thread and processes its yields until it parks at a
// frame boundary (plain yield) or completes. Awaits and spawns resume the
// thread within the same step.
func (s *Scheduler) step(ctx context.Context, t *Thread) (alive bool, err error) {
	res := resumeMsg{}
	for {
		select {
		case t.resume <- res:
		case <-ctx.Done():
			return true, ctx.Err()
		}

		m, ok := <-t.yields
		if !ok {
			if t.err != nil {
				return false, fmt.Errorf("thread %d: routine failed: %w", t.id, t.err)
			}
			return false, nil
		}

		switch m.kind {
		case yieldNone:
			// Frame boundary: the thread stays parked until the
			// next scheduling step.
			return true, nil

		case yieldRaw:
			// Protocol violation. Resume with no value so one
			// malformed yield cannot abort an entire render.
			s.logger.Warn("ignoring invalid yield value",
				"thread", t.id,
				"type", fmt.Sprintf("%T", m.raw))
			res = resumeMsg{}

		case yieldAwait:
			select {
			case <-m.future.Done():
				v, ferr := m.future.Result()
				res = resumeMsg{value: v, err: ferr}
			case <-ctx.Done():
				return true, ctx.Err()
			}

		case yieldSpawn:
			s.spawn(m.child)
			res = resumeMsg{}
		}
	}
}

// Stop unwinds all parked routine goroutines. Safe to call repeatedly.
// After Stop the scheduler reports done.
func (s *Scheduler) Stop() {
	s.done = true
	s.halt()
}

// Done reports whether the scheduler has completed.
func (s *Scheduler) Done() bool {
	return s.done
}

// Err returns the fatal routine error, if any.
func (s *Scheduler) Err() error {
	return s.err
}

// Threads returns the current pool size.
func (s *Scheduler) Threads() int {
	return len(s.threads)
}

func (s *Scheduler) spawn(r Routine) {
	t := newThread(s.nextID, r, s.stop)
	s.nextID++
	s.threads = append(s.threads, t)
	s.notifyPool()
}

func (s *Scheduler) fail(err error) {
	s.done = true
	s.err = err
	s.halt()
}

func (s *Scheduler) halt() {
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
	s.threads = nil
}

func (s *Scheduler) notifyPool() {
	if s.onPool != nil {
		s.onPool(len(s.threads))
	}
}
