package scene

import (
	"context"
	"sort"

	"github.com/stagehand-io/stagehand/internal/timing"
)

// Listener receives the full current set of time events after every
// ledger mutation. Notification is synchronous and ordered; the slice is
// a snapshot the listener may keep.
type Listener func(events []timing.Event)

// OnEventsChanged registers a ledger listener.
func (s *Scene) OnEventsChanged(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Events returns a name-sorted snapshot of the live time events.
func (s *Scene) Events() []timing.Event {
	out := make([]timing.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FrameEvent returns the frame at which the named event should occur.
//
// The event's initial time is the routine's current position relative to
// the scene's first frame. First requests seed the event from any stored
// record of the same name, so user adjustments survive a reload. When an
// existing event's initial time has drifted (upstream timing edits moved
// the query point), the record is re-anchored and the updated record is
// written back to the stored snapshot.
func (s *Scene) FrameEvent(name string) int {
	initial := s.rate.FramesToSeconds(s.frame - s.firstFrame)

	e, ok := s.events[name]
	switch {
	case !ok:
		seed := timing.Event{Name: name, InitialTime: initial, TargetTime: initial}
		if prev, found := s.stored[name]; found {
			seed = prev
		}
		fresh := seed.Shifted(initial, s.preserve)
		e = &fresh
		s.events[name] = e
		s.notify()

	case e.InitialTime != initial:
		*e = e.Shifted(initial, s.preserve)
		s.stored[name] = *e
		s.notify()
	}

	return s.firstFrame + s.rate.SecondsToFrames(e.InitialTime+e.Offset)
}

// SetFrameEvent adjusts the named event's offset in seconds. Unknown
// names and unchanged offsets are no-ops. Any real change un-caches the
// scene, records the preserve intent, and updates both the live and
// stored records.
func (s *Scene) SetFrameEvent(name string, offset float64, preserve bool) {
	e, ok := s.events[name]
	if !ok || e.Offset == offset {
		return
	}
	s.cached = false
	s.preserve = preserve
	e.Offset = offset
	e.TargetTime = e.InitialTime + offset
	s.stored[name] = *e
	s.notify()
}

// MarkCached freezes the current timing as authoritative: preserve mode
// is disabled, live events are merged into the stored snapshot, and the
// snapshot is persisted to the durable store.
func (s *Scene) MarkCached(ctx context.Context) error {
	s.cached = true
	s.preserve = false
	for name, e := range s.events {
		s.stored[name] = *e
	}
	if s.store == nil {
		return nil
	}
	snapshot := make(map[string]timing.Event, len(s.stored))
	for name, e := range s.stored {
		snapshot[name] = e
	}
	if err := s.store.WriteScene(ctx, s.project, s.name, snapshot); err != nil {
		return &PlaybackError{Code: ErrCodeStoreFailed, Scene: s.name, Frame: s.frame, Err: err}
	}
	return nil
}

// Reload prepares the ledger for an edited routine: live events are
// merged into the stored snapshot and cleared, so the next playback pass
// re-requests them and recovers their adjusted timings. A non-nil runner
// replaces the scene's routine; it takes effect on the next Reset.
func (s *Scene) Reload(runner RunnerFunc) {
	if runner != nil {
		s.runner = runner
	}
	s.cached = false
	for name, e := range s.events {
		s.stored[name] = *e
	}
	s.events = make(map[string]*timing.Event)
	s.notify()
}

func (s *Scene) notify() {
	if len(s.listeners) == 0 {
		return
	}
	snapshot := s.Events()
	for _, l := range s.listeners {
		l(snapshot)
	}
}
