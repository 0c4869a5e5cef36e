package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagehand-io/stagehand/internal/timing"
)

func TestLedger_FrameEventAtFrameZero(t *testing.T) {
	ctx := context.Background()
	s := newTestScene(t, Config{Duration: 30, Rate: 30, Runner: yielder(29)})
	require.NoError(t, s.Reset(ctx, nil))

	assert.Equal(t, 0, s.FrameEvent("in"))
}

func TestLedger_SetFrameEventMovesTarget(t *testing.T) {
	// duration=30 at 30fps; "in" requested at frame 0 returns frame 0;
	// after a 1.0s offset edit it returns frame 30.
	ctx := context.Background()
	s := newTestScene(t, Config{Duration: 30, Rate: 30, Runner: yielder(29)})
	require.NoError(t, s.Reset(ctx, nil))

	require.Equal(t, 0, s.FrameEvent("in"))

	s.SetFrameEvent("in", 1.0, true)
	assert.Equal(t, 30, s.FrameEvent("in"))
	assert.False(t, s.Cached(), "an edit un-caches the scene")
}

func TestLedger_SetFrameEventUnchangedIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestScene(t, Config{Runner: yielder(5)})
	require.NoError(t, s.Reset(ctx, nil))

	s.FrameEvent("in")
	s.SetFrameEvent("in", 2.0, true)
	require.False(t, s.Cached())

	// Force the cached flag so the no-op is observable.
	require.NoError(t, s.MarkCached(ctx))
	require.True(t, s.Cached())

	notified := 0
	s.OnEventsChanged(func([]timing.Event) { notified++ })

	s.SetFrameEvent("in", 2.0, true)
	assert.True(t, s.Cached(), "unchanged offset must not un-cache")
	assert.Zero(t, notified, "unchanged offset must not notify")

	s.SetFrameEvent("unknown", 1.0, true)
	assert.True(t, s.Cached(), "unknown event must be ignored")
	assert.Zero(t, notified)
}

func TestLedger_ReloadRoundTripsOffset(t *testing.T) {
	ctx := context.Background()
	s := newTestScene(t, Config{Runner: yielder(5)})
	require.NoError(t, s.Reset(ctx, nil))

	s.FrameEvent("in")
	s.SetFrameEvent("in", 1.5, false)

	s.Reload(nil)
	assert.Empty(t, s.Events(), "reload clears live events")

	// Same query point, preserve=false: the stored record seeds an
	// equivalent offset.
	frame := s.FrameEvent("in")
	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 1.5, events[0].Offset)
	assert.Equal(t, 45, frame, "1.5s at 30fps")
}

func TestLedger_ReloadNotifiesWithEmptySet(t *testing.T) {
	ctx := context.Background()
	s := newTestScene(t, Config{Runner: yielder(5)})
	require.NoError(t, s.Reset(ctx, nil))
	s.FrameEvent("in")

	var last []timing.Event
	called := false
	s.OnEventsChanged(func(events []timing.Event) {
		called = true
		last = events
	})

	s.Reload(nil)
	assert.True(t, called)
	assert.Empty(t, last)
}

func TestLedger_ReloadSwapsRunner(t *testing.T) {
	ctx := context.Background()
	ranSecond := false
	s := newTestScene(t, Config{Runner: yielder(5)})
	require.NoError(t, s.Reset(ctx, nil))

	s.Reload(func(c *Context) error {
		ranSecond = true
		return c.Thread.Yield()
	})
	require.NoError(t, s.Reset(ctx, nil))
	assert.True(t, ranSecond)
}

func TestLedger_InitialTimeDriftReanchors(t *testing.T) {
	ctx := context.Background()
	s := newTestScene(t, Config{Duration: 30, Rate: 30, Runner: func(c *Context) error {
		for {
			if err := c.Thread.Yield(); err != nil {
				return err
			}
		}
	}})
	require.NoError(t, s.Reset(ctx, nil))

	// First request at frame 0.
	require.Equal(t, 0, s.FrameEvent("in"))
	s.SetFrameEvent("in", 1.0, false)

	// Upstream edit: the query point moves to frame 15 (0.5s). With
	// preserve off, the target stays at 1.0s and the offset shrinks.
	for i := 0; i < 15; i++ {
		require.NoError(t, s.Advance(ctx))
	}
	frame := s.FrameEvent("in")
	assert.Equal(t, 30, frame, "target time is authoritative without preserve")

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 0.5, events[0].InitialTime)
	assert.Equal(t, 0.5, events[0].Offset)
}

func TestLedger_PreserveCarriesOffsetThroughDrift(t *testing.T) {
	ctx := context.Background()
	s := newTestScene(t, Config{Duration: 30, Rate: 30, Runner: func(c *Context) error {
		for {
			if err := c.Thread.Yield(); err != nil {
				return err
			}
		}
	}})
	require.NoError(t, s.Reset(ctx, nil))

	require.Equal(t, 0, s.FrameEvent("in"))
	s.SetFrameEvent("in", 1.0, true)

	for i := 0; i < 15; i++ {
		require.NoError(t, s.Advance(ctx))
	}
	// Preserve mode: the offset rides along with the new anchor.
	assert.Equal(t, 15+30, s.FrameEvent("in"))
}

func TestLedger_MarkCachedPersistsToStore(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	s := newTestScene(t, Config{Store: ms, Runner: yielder(5)})
	require.NoError(t, s.Reset(ctx, nil))

	s.FrameEvent("in")
	s.SetFrameEvent("in", 1.0, true)
	require.NoError(t, s.MarkCached(ctx))
	require.True(t, s.Cached())

	// A freshly constructed scene with the same key recovers the events.
	s2 := newTestScene(t, Config{Store: ms, Runner: yielder(5)})
	require.NoError(t, s2.Reset(ctx, nil))
	assert.True(t, s2.Cached(), "stored timings mark the scene cached")
	assert.Equal(t, 30, s2.FrameEvent("in"))
}

func TestLedger_MarkCachedStoreFailure(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.writeErr = errors.New("disk full")
	s := newTestScene(t, Config{Store: ms, Runner: yielder(5)})
	require.NoError(t, s.Reset(ctx, nil))

	s.FrameEvent("in")
	err := s.MarkCached(ctx)
	require.Error(t, err)
	var pe *PlaybackError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeStoreFailed, pe.Code)
}

func TestLedger_ListenersGetFullSnapshotInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestScene(t, Config{Runner: yielder(5)})
	require.NoError(t, s.Reset(ctx, nil))

	var order []string
	var lastLen int
	s.OnEventsChanged(func(events []timing.Event) {
		order = append(order, "first")
		lastLen = len(events)
	})
	s.OnEventsChanged(func(events []timing.Event) {
		order = append(order, "second")
	})

	s.FrameEvent("a")
	s.FrameEvent("b")

	assert.Equal(t, []string{"first", "second", "first", "second"}, order)
	assert.Equal(t, 2, lastLen, "listeners see the full set, not deltas")
}
