package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stagehand-io/stagehand/internal/store"
	"github.com/stagehand-io/stagehand/internal/timing"
)

// EventsOptions holds flags for the events commands.
type EventsOptions struct {
	*RootOptions
	Database string
}

// NewEventsCommand creates the events command group.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and edit stored time events",
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newEventsListCommand(opts))
	cmd.AddCommand(newEventsSetCommand(opts))
	cmd.AddCommand(newEventsClearCommand(opts))

	return cmd
}

func newEventsListCommand(opts *EventsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored time events for every scene",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(opts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			keys, err := st.Keys(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list timelines", err)
			}

			type timelineEvents struct {
				Key    string         `json:"key"`
				Events []timing.Event `json:"events"`
			}
			var timelines []timelineEvents
			for _, key := range keys {
				events, err := st.ReadEvents(cmd.Context(), key)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read events", err)
				}
				timelines = append(timelines, timelineEvents{Key: key, Events: sortedEvents(events)})
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			if opts.Format == "json" {
				return out.Success(timelines)
			}
			for _, tl := range timelines {
				fmt.Fprintln(cmd.OutOrStdout(), tl.Key)
				for _, ev := range tl.Events {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-20s initial=%-8.3f target=%-8.3f offset=%.3f\n",
						ev.Name, ev.InitialTime, ev.TargetTime, ev.Offset)
				}
			}
			if len(timelines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored timelines")
			}
			return nil
		},
	}
}

func newEventsSetCommand(opts *EventsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set <project> <scene> <event> <offset-seconds>",
		Short:         "Set the offset of a stored time event",
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, sceneName, name := args[0], args[1], args[2]
			offset, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "offset must be a number", err)
			}

			st, err := store.Open(opts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			events, err := st.ReadScene(cmd.Context(), project, sceneName)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read events", err)
			}
			ev, ok := events[name]
			if !ok {
				return WrapExitError(ExitFailure, fmt.Sprintf("no event %q stored for scene %q", name, sceneName), nil)
			}

			ev.Offset = offset
			ev.TargetTime = ev.InitialTime + offset
			events[name] = ev
			if err := st.WriteScene(cmd.Context(), project, sceneName, events); err != nil {
				return WrapExitError(ExitCommandError, "failed to write events", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			return out.Success(fmt.Sprintf("%s: offset %.3fs, target %.3fs", name, ev.Offset, ev.TargetTime))
		},
	}
}

func newEventsClearCommand(opts *EventsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear <project> <scene>",
		Short:         "Discard stored time events for a scene",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(opts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			if err := st.WriteScene(cmd.Context(), args[0], args[1], nil); err != nil {
				return WrapExitError(ExitCommandError, "failed to clear events", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			return out.Success(fmt.Sprintf("cleared time events for %s/%s", args[0], args[1]))
		},
	}
}

func sortedEvents(events map[string]timing.Event) []timing.Event {
	out := make([]timing.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
