package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagehand-io/stagehand/internal/store"
	"github.com/stagehand-io/stagehand/internal/timing"
)

func seedStore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "stagehand.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	events := map[string]timing.Event{
		"settled": {Name: "settled", InitialTime: 0.5, TargetTime: 0.5},
	}
	require.NoError(t, st.WriteScene(context.Background(), "demo", "intro", events))
	return dbPath
}

func TestEventsList(t *testing.T) {
	dbPath := seedStore(t)

	out, err := execute(t, "events", "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "scene-demo-intro")
	assert.Contains(t, out, "settled")
}

func TestEventsList_Empty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stagehand.db")

	out, err := execute(t, "events", "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "no stored timelines")
}

func TestEventsList_JSON(t *testing.T) {
	dbPath := seedStore(t)

	out, err := execute(t, "events", "list", "--db", dbPath, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)
	assert.Contains(t, out, `"key":"scene-demo-intro"`)
}

func TestEventsSet(t *testing.T) {
	dbPath := seedStore(t)

	out, err := execute(t, "events", "set", "--db", dbPath, "demo", "intro", "settled", "1.5")
	require.NoError(t, err)
	assert.Contains(t, out, "target 2.000s")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	events, err := st.ReadScene(context.Background(), "demo", "intro")
	require.NoError(t, err)
	assert.Equal(t, 1.5, events["settled"].Offset)
	assert.Equal(t, 2.0, events["settled"].TargetTime)
}

func TestEventsSet_UnknownEvent(t *testing.T) {
	dbPath := seedStore(t)

	_, err := execute(t, "events", "set", "--db", dbPath, "demo", "intro", "missing", "1.0")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestEventsSet_BadOffset(t *testing.T) {
	dbPath := seedStore(t)

	_, err := execute(t, "events", "set", "--db", dbPath, "demo", "intro", "settled", "soon")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEventsClear(t *testing.T) {
	dbPath := seedStore(t)

	_, err := execute(t, "events", "clear", "--db", dbPath, "demo", "intro")
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	events, err := st.ReadScene(context.Background(), "demo", "intro")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventsRequiresDB(t *testing.T) {
	_, err := execute(t, "events", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}
