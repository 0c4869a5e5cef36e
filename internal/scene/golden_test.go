package scene

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/stagehand-io/stagehand/internal/timing"
)

// traceEntry is one frame of a playback trace: the observable state a
// conformance run must reproduce byte-for-byte.
type traceEntry struct {
	Frame  int            `json:"frame"`
	State  string         `json:"state"`
	Events []timing.Event `json:"events"`
}

func snapshot(s *Scene) traceEntry {
	return traceEntry{
		Frame:  s.Playhead(),
		State:  s.State().String(),
		Events: s.Events(),
	}
}

// TestPlayback_GoldenTrace plays a scripted scene to completion and
// compares the full frame trace against the golden fixture. Any change
// to scheduling order, state edges, or ledger timing shows up here.
func TestPlayback_GoldenTrace(t *testing.T) {
	ctx := context.Background()

	s := newTestScene(t, Config{
		Name:     "golden",
		Duration: 4,
		Rate:     2, // 0.5s frames keep the fixture readable
		Runner: func(c *Context) error {
			if err := c.Transition(nil); err != nil {
				return err
			}
			c.Scene.FrameEvent("beat")
			for i := 0; i < 3; i++ {
				if err := c.Thread.Yield(); err != nil {
					return err
				}
			}
			return nil
		},
	})

	var trace []traceEntry
	require.NoError(t, s.Reset(ctx, nil))
	trace = append(trace, snapshot(s))
	for s.State() != StateFinished {
		require.NoError(t, s.Advance(ctx))
		trace = append(trace, snapshot(s))
	}

	data, err := json.MarshalIndent(trace, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "playback_trace", data)
}
