package scheduler

import "errors"

// ErrStopped is delivered to a suspended routine when its scheduler is
// stopped. Routines should return it unchanged so the goroutine unwinds.
var ErrStopped = errors.New("scheduler stopped")

// ErrPending is returned by Future.Result before the Future settles.
var ErrPending = errors.New("future not settled")

// Routine is a user-authored resumable procedure. It runs on its own
// goroutine but executes only while the scheduler has resumed it: every
// Yield/Await/Spawn call parks the goroutine until the next scheduling
// step. A Routine returning nil completes its thread; returning an error
// terminates the whole scheduler fatally.
type Routine func(t *Thread) error

type yieldKind int

const (
	yieldNone yieldKind = iota
	yieldAwait
	yieldSpawn
	yieldRaw
)

type yieldMsg struct {
	kind   yieldKind
	future *Future
	child  Routine
	raw    any
}

type resumeMsg struct {
	value any
	err   error
}

// Thread is one logical thread of a routine: the resumable cursor the
// scheduler advances. Exactly one of the scheduler and the routine
// goroutine runs at any moment; the yields/resume channel pair is the
// handoff between them.
type Thread struct {
	id     int
	yields chan yieldMsg
	resume chan resumeMsg
	stop   <-chan struct{}

	// err holds the routine's return value. Written by the routine
	// goroutine before yields is closed; read by the scheduler only
	// after observing the close.
	err error
}

func newThread(id int, r Routine, stop <-chan struct{}) *Thread {
	t := &Thread{
		id:     id,
		yields: make(chan yieldMsg),
		resume: make(chan resumeMsg),
		stop:   stop,
	}
	go func() {
		defer close(t.yields)
		// Park until the first scheduling step; threads never run
		// outside Scheduler.Next.
		select {
		case <-t.resume:
		case <-t.stop:
			t.err = ErrStopped
			return
		}
		t.err = r(t)
	}()
	return t
}

// send hands a yield to the scheduler and parks until resumed.
func (t *Thread) send(m yieldMsg) (any, error) {
	select {
	case t.yields <- m:
	case <-t.stop:
		return nil, ErrStopped
	}
	select {
	case r := <-t.resume:
		return r.value, r.err
	case <-t.stop:
		return nil, ErrStopped
	}
}

// Yield suspends the routine until the next scheduling step.
// The returned error is non-nil only when the scheduler was stopped.
func (t *Thread) Yield() error {
	_, err := t.send(yieldMsg{kind: yieldNone})
	return err
}

// Await suspends the entire current scheduling step until f settles,
// then resumes with its value or error. A load failure surfaces here;
// the routine may handle it or return it to fail the scene.
func (t *Thread) Await(f *Future) (any, error) {
	return t.send(yieldMsg{kind: yieldAwait, future: f})
}

// Spawn merges a child routine into the owning scheduler. The child is
// stepped within the same scheduling step it was spawned in; the parent
// resumes immediately.
func (t *Thread) Spawn(r Routine) error {
	_, err := t.send(yieldMsg{kind: yieldSpawn, child: r})
	return err
}

// YieldValue reproduces the loose generator protocol for routines that
// carry opaque values to the scheduler: a *Future awaits, a Routine
// spawns, nil is a plain yield. Any other value is a protocol violation;
// the scheduler logs it and resumes with no value rather than failing.
func (t *Thread) YieldValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, t.Yield()
	case *Future:
		return t.Await(val)
	case Routine:
		return nil, t.Spawn(val)
	default:
		return t.send(yieldMsg{kind: yieldRaw, raw: v})
	}
}
