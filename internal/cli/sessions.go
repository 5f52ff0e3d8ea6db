package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptside/skillgate/internal/session"
)

// SessionsOptions holds flags for the sessions command tree.
type SessionsOptions struct {
	*RootOptions
	OlderThan time.Duration
}

// SessionView is the data payload for `sessions show`.
type SessionView struct {
	SessionID string            `json:"sessionId"`
	Events    []SessionEvent    `json:"events"`
	Structure map[string]string `json:"structure"`
}

// SessionEvent is one event row in SessionView.
type SessionEvent struct {
	Seq        int64  `json:"seq"`
	Path       string `json:"path"`
	Tool       string `json:"tool"`
	RecordedAt string `json:"recordedAt"`
}

// NewSessionsCommand creates the sessions command with its
// list/show/prune subcommands.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and prune recorded session state",
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List known session ids",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd, opts)
		},
	}

	show := &cobra.Command{
		Use:           "show <session-id>",
		Short:         "Show a session's event log and inferred structure",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd, opts, args[0])
		},
	}

	prune := &cobra.Command{
		Use:           "prune",
		Short:         "Delete sessions older than a cutoff",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsPrune(cmd, opts)
		},
	}
	prune.Flags().DurationVar(&opts.OlderThan, "older-than", 24*time.Hour, "delete sessions created before now minus this duration")

	cmd.AddCommand(list, show, prune)
	return cmd
}

func openSessionStore(opts *SessionsOptions) (*session.Tracker, error) {
	tracker, err := session.Open(opts.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening session database", err)
	}
	return tracker, nil
}

func runSessionsList(cmd *cobra.Command, opts *SessionsOptions) error {
	tracker, err := openSessionStore(opts)
	if err != nil {
		return err
	}
	defer tracker.Close()

	ids, err := tracker.SessionIDs(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "listing sessions", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(ids)
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, opts *SessionsOptions, sessionID string) error {
	tracker, err := openSessionStore(opts)
	if err != nil {
		return err
	}
	defer tracker.Close()

	events, err := tracker.Events(cmd.Context(), sessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading session events", err)
	}
	structure, err := tracker.StructureOf(cmd.Context(), sessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading session structure", err)
	}

	view := SessionView{
		SessionID: sessionID,
		Structure: structure,
	}
	for _, ev := range events {
		view.Events = append(view.Events, SessionEvent{
			Seq:        ev.Seq,
			Path:       ev.Path,
			Tool:       ev.Tool,
			RecordedAt: ev.RecordedAt.Format(time.RFC3339Nano),
		})
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(view)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "session %s: %d event(s)\n", sessionID, len(view.Events))
	for _, ev := range view.Events {
		fmt.Fprintf(cmd.OutOrStdout(), "  %4d  %-8s %s\n", ev.Seq, ev.Tool, ev.Path)
	}
	if len(structure) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "structure:")
		components := make([]string, 0, len(structure))
		for component := range structure {
			components = append(components, component)
		}
		sort.Strings(components)
		for _, component := range components {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s\n", component, structure[component])
		}
	}
	return nil
}

func runSessionsPrune(cmd *cobra.Command, opts *SessionsOptions) error {
	tracker, err := openSessionStore(opts)
	if err != nil {
		return err
	}
	defer tracker.Close()

	cutoff := time.Now().Add(-opts.OlderThan)
	pruned, err := tracker.PruneBefore(cmd.Context(), cutoff)
	if err != nil {
		return WrapExitError(ExitCommandError, "pruning sessions", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(map[string]int64{"pruned": pruned})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d session(s)\n", pruned)
	return nil
}
