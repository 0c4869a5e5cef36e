package cli

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagehand-io/stagehand/internal/store"
)

const testProject = `
name: demo
fps: 30
width: 32
height: 18
background: "#102030"
scenes:
  - name: one
    duration: 4
  - name: two
    duration: 3
    transition: 2
`

func writeProject(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderCommand_WritesFrames(t *testing.T) {
	project := writeProject(t, testProject)
	outDir := filepath.Join(t.TempDir(), "frames")

	out, err := execute(t, "render", "--out", outDir, project)
	require.NoError(t, err)
	assert.Contains(t, out, "rendered 7 frames")

	// One PNG per frame, numbered globally across scenes.
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 7)
	assert.Equal(t, "frame-000000.png", entries[0].Name())
	assert.Equal(t, "frame-000006.png", entries[6].Name())

	f, err := os.Open(filepath.Join(outDir, "frame-000003.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 18, img.Bounds().Dy())
}

func TestRenderCommand_PersistsTimeEvents(t *testing.T) {
	project := writeProject(t, testProject)
	dbPath := filepath.Join(t.TempDir(), "stagehand.db")
	outDir := filepath.Join(t.TempDir(), "frames")

	_, err := execute(t, "render", "--out", outDir, "--db", dbPath, project)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	keys, err := st.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"scene-demo-one", "scene-demo-two"}, keys)

	events, err := st.ReadScene(context.Background(), "demo", "one")
	require.NoError(t, err)
	assert.Contains(t, events, "settled")
}

func TestRenderCommand_Deterministic(t *testing.T) {
	project := writeProject(t, testProject)
	dirA := filepath.Join(t.TempDir(), "a")
	dirB := filepath.Join(t.TempDir(), "b")

	_, err := execute(t, "render", "--out", dirA, project)
	require.NoError(t, err)
	_, err = execute(t, "render", "--out", dirB, project)
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(dirA, "frame-000002.png"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dirB, "frame-000002.png"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderCommand_BadProject(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "frames")

	_, err := execute(t, "render", "--out", outDir, filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderCommand_RequiresOut(t *testing.T) {
	project := writeProject(t, testProject)

	_, err := execute(t, "render", project)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out")
}
