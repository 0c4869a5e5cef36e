package cli

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stagehand-io/stagehand/internal/config"
	"github.com/stagehand-io/stagehand/internal/scene"
	"github.com/stagehand-io/stagehand/internal/stage"
	"github.com/stagehand-io/stagehand/internal/store"
	"github.com/stagehand-io/stagehand/internal/timing"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Database string
	Output   string
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <project.yaml>",
		Short: "Render a project to numbered PNG frames",
		Long: `Render every scene of a project, frame by frame, to numbered PNG files.

Scenes play back deterministically: the same project and the same stored
time events always produce the same frames. With --db, time events are
persisted so later runs can reuse them.

Example:
  stagehand render --out ./frames ./project.yaml
  stagehand render --out ./frames --db ./stagehand.db ./project.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for time events (optional)")
	cmd.Flags().StringVar(&opts.Output, "out", "", "output directory for frames (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions, projectPath string) error {
	logger := newLogger(opts.Verbose)

	project, err := config.Load(projectPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load project", err)
	}
	logger.Info("project loaded", "name", project.Name, "scenes", len(project.Scenes))

	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create output directory", err)
	}

	var timings scene.TimingStore
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		if err := st.RecordSession(cmd.Context(), uuid.NewString(), project.Name); err != nil {
			return WrapExitError(ExitCommandError, "failed to record session", err)
		}
		timings = st
	}

	st := stage.New(stage.WithLogger(logger))
	st.Configure(stage.Options{
		ColorSpace: stage.ColorSpace(project.ColorSpace),
		Size:       image.Pt(project.Width, project.Height),
		Scale:      project.Scale,
		Rate:       timing.Rate(project.FPS),
		MotionBlur: project.MotionBlur,
		Background: project.Background,
	})

	written, err := renderProject(cmd.Context(), logger, project, timings, st, opts.Output)
	if err != nil {
		return err
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return out.Success(fmt.Sprintf("rendered %d frames to %s", written, opts.Output))
}

// renderProject plays every scene in order and writes one PNG per frame.
// Frame numbering is global across the whole project.
func renderProject(ctx context.Context, logger *slog.Logger, project *config.Project, timings scene.TimingStore, st *stage.Stage, outDir string) (int, error) {
	rate, err := timing.New(project.FPS)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid frame rate", err)
	}

	written := 0
	firstFrame := 0
	var previous *scene.Scene

	for _, sc := range project.Scenes {
		current, err := scene.New(ctx, scene.Config{
			Name:          sc.Name,
			Project:       project.Name,
			Rate:          rate,
			FirstFrame:    firstFrame,
			Duration:      sc.Duration,
			Runner:        demoRunner(project, sc),
			Store:         timings,
			PreviousOnTop: sc.PreviousOnTop,
			Logger:        logger,
		})
		if err != nil {
			return written, WrapExitError(ExitCommandError, "failed to build scene", err)
		}

		logger.Info("scene starting", "scene", sc.Name, "firstFrame", firstFrame, "duration", sc.Duration)
		if err := current.Reset(ctx, previous); err != nil {
			return written, WrapExitError(ExitFailure, "scene routine failed", err)
		}

		for {
			if err := writeFrame(ctx, st, current, outDir, current.Playhead()); err != nil {
				return written, err
			}
			written++
			if current.State() == scene.StateFinished {
				break
			}
			if err := current.Advance(ctx); err != nil {
				return written, WrapExitError(ExitFailure, "scene routine failed", err)
			}
		}

		if timings != nil {
			if err := current.MarkCached(ctx); err != nil {
				return written, WrapExitError(ExitCommandError, "failed to store time events", err)
			}
		}
		logger.Info("scene finished", "scene", sc.Name, "lastFrame", current.Playhead())

		firstFrame = current.LastFrame()
		previous = current
	}

	return written, nil
}

func writeFrame(ctx context.Context, st *stage.Stage, current *scene.Scene, outDir string, frame int) error {
	// A nil *Scene must not reach the compositor as a non-nil interface.
	var prev stage.Source
	if p := current.Previous(); p != nil {
		prev = p
	}

	img, err := st.Render(ctx, current, prev)
	if err != nil {
		return WrapExitError(ExitFailure, "render failed", err)
	}

	path := filepath.Join(outDir, fmt.Sprintf("frame-%06d.png", frame))
	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create frame file", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return WrapExitError(ExitCommandError, "failed to encode frame", err)
	}
	if err := f.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write frame", err)
	}
	return nil
}

// demoRunner builds the stock routine used when a project has no
// compiled-in scenes: a box fades in with the scene and slides across
// the width for the rest of the duration.
func demoRunner(project *config.Project, sc config.Scene) scene.RunnerFunc {
	return func(c *scene.Context) error {
		h := project.Height / 4
		if h < 1 {
			h = 1
		}
		box := scene.NewBox(
			c.Scene.NodeName("box"),
			image.Rect(0, h, h, 2*h),
			color.RGBA{R: 0xe8, G: 0x5d, B: 0x04, A: 0xff},
		)
		c.Scene.Root().Add(box)

		var strategy scene.Strategy
		if sc.Transition > 0 {
			strategy = scene.FadeIn(sc.Transition)
		}
		if err := c.Transition(strategy); err != nil {
			return err
		}
		c.Scene.FrameEvent("settled")

		steps := c.Scene.Duration() - 1
		if sc.Transition > 1 {
			steps -= sc.Transition - 1
		}
		for i := 1; i <= steps; i++ {
			x := (project.Width - h) * i / max(steps, 1)
			box.SetRect(image.Rect(x, h, x+h, 2*h))
			if err := c.Thread.Yield(); err != nil {
				return err
			}
		}
		c.Scene.CanFinish()
		return nil
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
