// Package scene implements the scene driver: the externally visible
// unit a caller advances frame-by-frame.
//
// A Scene orchestrates three cooperating parts:
//   - a cooperative scheduler driving the user-authored routine
//     (internal/scheduler),
//   - a lifecycle state machine gating transitions and disposal (State),
//   - a time-event ledger that preserves user-adjusted event timings
//     across edits and routine reloads (ledger.go).
//
// Exactly one scene advances at a time. The routine receives an explicit
// *Context rather than querying process-wide state, so "the currently
// active scene" is always the one whose Advance call is on the stack.
package scene

import (
	"context"
	"fmt"
	"image/draw"
	"log/slog"

	"github.com/stagehand-io/stagehand/internal/scheduler"
	"github.com/stagehand-io/stagehand/internal/timing"
)

// DefaultLayoutRetryLimit bounds the extra layout passes performed after
// each scheduling step. The bound is configurable; exceeding it accepts
// partial layout with a warning rather than looping forever.
const DefaultLayoutRetryLimit = 10

// RunnerFunc is a user-authored animation routine. It is invoked fresh
// on every Reset and advances one frame per Yield on its thread.
type RunnerFunc func(c *Context) error

// Context is the ambient context a routine runs with: the scene being
// advanced and the cooperative thread to suspend on. It is passed
// explicitly into every call that needs it.
type Context struct {
	Scene  *Scene
	Thread *scheduler.Thread
}

// TimingStore is the durable persistence surface for time events,
// keyed by project and scene name. Implemented by the SQLite store
// (internal/store) and by in-memory doubles in tests.
type TimingStore interface {
	ReadScene(ctx context.Context, project, scene string) (map[string]timing.Event, error)
	WriteScene(ctx context.Context, project, scene string, events map[string]timing.Event) error
}

// Config describes one scene.
type Config struct {
	// Name is the scene's identity within its project.
	Name string
	// Project is the owning project's name, used for store keys.
	Project string
	// Rate is the project's frame rate.
	Rate timing.Rate
	// FirstFrame is the scene's first frame index on the project
	// timeline.
	FirstFrame int
	// Duration is the scene's length in frames.
	Duration int
	// Runner is the scene's animation routine.
	Runner RunnerFunc
	// Store persists time events. Optional; a nil store means timings
	// are not durable.
	Store TimingStore
	// PreviousOnTop draws the previous scene above this one while a
	// transition is in progress.
	PreviousOnTop bool
	// LayoutRetryLimit overrides DefaultLayoutRetryLimit when positive.
	LayoutRetryLimit int
	// PoolHook observes the scheduler's thread pool composition.
	PoolHook scheduler.PoolHook
	// Logger receives protocol-violation warnings. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Scene is a named animation unit with its own timeline and routine.
//
// Not safe for concurrent use; the playback model is strictly
// one scene advancing at a time on one goroutine.
type Scene struct {
	name          string
	project       string
	rate          timing.Rate
	firstFrame    int
	duration      int
	runner        RunnerFunc
	store         TimingStore
	previousOnTop bool
	layoutLimit   int
	poolHook      scheduler.PoolHook
	logger        *slog.Logger

	state    State
	cached   bool
	preserve bool
	events   map[string]*timing.Event
	stored   map[string]timing.Event
	counters map[string]int

	listeners []Listener

	root     *Group
	previous *Scene
	hidden   bool
	opacity  float64

	sched *scheduler.Scheduler
	frame int
}

// New constructs a Scene and reads any previously stored time events for
// its key. The scene is not runnable until Reset is called.
func New(ctx context.Context, cfg Config) (*Scene, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("scene name is required")
	}
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("scene %q: invalid frame rate %v", cfg.Name, cfg.Rate)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("scene %q: invalid duration %d", cfg.Name, cfg.Duration)
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("scene %q: runner is required", cfg.Name)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.LayoutRetryLimit
	if limit <= 0 {
		limit = DefaultLayoutRetryLimit
	}

	s := &Scene{
		name:          cfg.Name,
		project:       cfg.Project,
		rate:          cfg.Rate,
		firstFrame:    cfg.FirstFrame,
		duration:      cfg.Duration,
		runner:        cfg.Runner,
		store:         cfg.Store,
		previousOnTop: cfg.PreviousOnTop,
		layoutLimit:   limit,
		poolHook:      cfg.PoolHook,
		logger:        logger,
		state:         StateInitial,
		events:        make(map[string]*timing.Event),
		stored:        make(map[string]timing.Event),
		counters:      make(map[string]int),
		root:          NewGroup("root"),
		opacity:       1,
		frame:         cfg.FirstFrame,
	}

	if cfg.Store != nil {
		stored, err := cfg.Store.ReadScene(ctx, cfg.Project, cfg.Name)
		if err != nil {
			return nil, &PlaybackError{Code: ErrCodeStoreFailed, Scene: cfg.Name, Err: err}
		}
		s.stored = stored
		if len(stored) > 0 {
			s.cached = true
		}
	}

	return s, nil
}

// Reset prepares the scene for a playback pass: defaults restored,
// children cleared, per-type name counters cleared, a fresh scheduler
// bound to a newly invoked routine instance, state back to Initial. The
// previous scene back-reference is stored for transition purposes only;
// it is dropped when the entry transition completes.
//
// One Advance is performed immediately so the scene is populated before
// first display.
func (s *Scene) Reset(ctx context.Context, previous *Scene) error {
	if s.sched != nil {
		s.sched.Stop()
	}

	s.hidden = false
	s.opacity = 1
	s.root = NewGroup("root")
	s.counters = make(map[string]int)
	s.previous = previous
	s.state = StateInitial
	s.frame = s.firstFrame

	runner := s.runner
	s.sched = scheduler.New(func(t *scheduler.Thread) error {
		return runner(&Context{Scene: s, Thread: t})
	}, scheduler.WithLogger(s.logger), scheduler.WithPoolHook(s.poolHook))

	return s.step(ctx)
}

// Advance produces the next frame's state: the playhead moves one frame
// and every live thread of the routine is resumed once. Blocks only on
// awaited asynchronous results. Calling Advance on a finished scene is
// a no-op.
func (s *Scene) Advance(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("scene %q: Advance before Reset", s.name)
	}
	if s.state == StateFinished {
		return nil
	}
	s.frame++
	return s.step(ctx)
}

func (s *Scene) step(ctx context.Context) error {
	done, err := s.sched.Next(ctx)
	s.updateLayout()
	if err != nil {
		s.enterFinished()
		return &PlaybackError{Code: ErrCodeRoutineFailed, Scene: s.name, Frame: s.frame, Err: err}
	}
	if done {
		s.enterFinished()
	}
	return nil
}

// updateLayout re-runs the scene graph's layout until it stabilizes,
// bounded to layoutLimit extra passes. Unstable layout is accepted with
// a warning; a cascading invalidation bug must not hang playback.
func (s *Scene) updateLayout() {
	if !s.root.WasDirty() {
		return
	}
	for i := 0; i < s.layoutLimit; i++ {
		if !s.root.WasDirty() {
			return
		}
	}
	s.logger.Warn("layout did not stabilize",
		"scene", s.name,
		"frame", s.frame,
		"extraPasses", s.layoutLimit)
}

// completeTransitionIn performs the Initial -> AfterTransitionIn edge.
// Called by Context.Transition when the entry transition finishes. The
// previous-scene reference must not outlive the transition, so it is
// dropped here.
func (s *Scene) completeTransitionIn() {
	if s.state != StateInitial {
		s.logger.Warn("invalid state transition",
			"scene", s.name,
			"from", s.state.String(),
			"to", StateAfterTransitionIn.String())
		return
	}
	s.state = StateAfterTransitionIn
	s.previous = nil
}

// CanFinish signals that the scene may begin transitioning out,
// performing the AfterTransitionIn -> CanTransitionOut edge. Attempted
// from any other state it is a warning-logged no-op.
func (s *Scene) CanFinish() {
	if s.state != StateAfterTransitionIn {
		s.logger.Warn("invalid state transition",
			"scene", s.name,
			"from", s.state.String(),
			"to", StateCanTransitionOut.String())
		return
	}
	s.state = StateCanTransitionOut
}

func (s *Scene) enterFinished() {
	s.state = StateFinished
}

// MayTransitionOut reports whether the scene allows the next scene to
// begin transitioning in. Finished implies it.
func (s *Scene) MayTransitionOut() bool {
	return s.state == StateCanTransitionOut || s.state == StateFinished
}

// NodeName generates a stable child identifier for a node type:
// box-0, box-1, ... Counters reset on every Reset, so identifiers are
// reproducible across playback passes.
func (s *Scene) NodeName(kind string) string {
	n := s.counters[kind]
	s.counters[kind] = n + 1
	return fmt.Sprintf("%s-%d", kind, n)
}

// Root returns the scene graph's root group.
func (s *Scene) Root() *Group { return s.root }

// Previous returns the previous scene, if a transition is in progress.
func (s *Scene) Previous() *Scene { return s.previous }

// Name returns the scene's identity name.
func (s *Scene) Name() string { return s.name }

// State returns the current lifecycle state.
func (s *Scene) State() State { return s.state }

// Cached reports whether the scene's timing has been finalized.
func (s *Scene) Cached() bool { return s.cached }

// Playhead returns the current absolute frame index.
func (s *Scene) Playhead() int { return s.frame }

// FirstFrame returns the scene's first frame index.
func (s *Scene) FirstFrame() int { return s.firstFrame }

// Duration returns the scene's length in frames.
func (s *Scene) Duration() int { return s.duration }

// LastFrame returns the frame index one past the scene's timeline.
func (s *Scene) LastFrame() int { return s.firstFrame + s.duration }

// Hide makes the whole scene invisible to the compositor.
func (s *Scene) Hide() { s.hidden = true }

// Show makes the scene visible again.
func (s *Scene) Show() { s.hidden = false }

// Visible reports whether the compositor should draw this scene.
func (s *Scene) Visible() bool { return !s.hidden }

// Opacity returns the scene's compositing opacity in [0, 1].
func (s *Scene) Opacity() float64 { return s.opacity }

// SetOpacity sets the compositing opacity, clamped to [0, 1].
func (s *Scene) SetOpacity(o float64) {
	if o < 0 {
		o = 0
	}
	if o > 1 {
		o = 1
	}
	s.opacity = o
}

// PreviousOnTop reports whether the previous scene composites above
// this one during transitions.
func (s *Scene) PreviousOnTop() bool { return s.previousOnTop }

// Render draws the scene graph into dst. offset is the sub-frame time
// offset used by motion-blur sub-renders.
func (s *Scene) Render(ctx context.Context, dst draw.Image, offset float64) error {
	if s.hidden {
		return nil
	}
	return s.root.Render(ctx, dst, offset)
}
