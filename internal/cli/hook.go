package cli

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptside/skillgate/internal/gateway"
	"github.com/promptside/skillgate/internal/resolve"
	"github.com/promptside/skillgate/internal/rules"
	"github.com/promptside/skillgate/internal/session"
)

// HookOptions holds flags for the hook command.
type HookOptions struct {
	*RootOptions
	Deadline time.Duration
	Lookback int
}

// NewHookCommand creates the hook command: the per-event entry point
// the host agent invokes.
func NewHookCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HookOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Handle one host event from stdin and reply on stdout",
		Long: `Handle one host event from stdin and reply on stdout.

The host agent spawns one skillgate process per event. The request is a
single JSON document on stdin; the response is a single JSON document
on stdout.

Example:
  echo '{"eventKind":"prompt_submitted","sessionId":"s1","promptText":"fix bug"}' | skillgate hook

Exit status 0 means the response on stdout is valid. Any non-zero exit
tells the host to proceed without suggestions.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Deadline, "deadline", gateway.DefaultDeadline, "per-event handling deadline")
	cmd.Flags().IntVar(&opts.Lookback, "lookback", resolve.DefaultLookback, "recent file events merged into path matching")

	return cmd
}

func runHook(cmd *cobra.Command, opts *HookOptions) error {
	req, err := readRequest(cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid event request", err)
	}

	// A missing or broken session store degrades to an empty session;
	// it never fails the call.
	tracker := openTracker(opts)
	if tracker != nil {
		defer tracker.Close()
	}

	// A ConfigError here leaves the store serving the empty ruleset:
	// resolution proceeds with no suggestions rather than failing.
	store := rules.NewStore()
	if err := store.Load(opts.RulesPath); err != nil {
		slog.Warn("continuing with empty ruleset", "source", opts.RulesPath)
	}

	resolver := resolve.New(tracker, resolve.WithLookback(opts.Lookback))

	// A typed nil inside the interface would dodge the gateway's nil
	// check, so only assign when the tracker actually opened.
	var recorder gateway.Recorder
	if tracker != nil {
		recorder = tracker
	}
	gw := gateway.New(store, recorder, resolver, gateway.WithDeadline(opts.Deadline))

	resp := gw.Handle(cmd.Context(), *req)

	enc := json.NewEncoder(cmd.OutOrStdout())
	if err := enc.Encode(resp); err != nil {
		return WrapExitError(ExitCommandError, "writing response", err)
	}
	return nil
}

func readRequest(r io.Reader) (*gateway.Request, error) {
	var req gateway.Request
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// openTracker opens the session database, creating its directory if
// needed. Returns nil on failure - callers treat that as an empty
// session.
func openTracker(opts *HookOptions) *session.Tracker {
	if dir := filepath.Dir(opts.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Warn("cannot create session state directory, running stateless",
				"dir", dir,
				"error", err,
			)
			return nil
		}
	}

	tracker, err := session.Open(opts.DBPath)
	if err != nil {
		slog.Warn("cannot open session database, running stateless",
			"db", opts.DBPath,
			"error", err,
		)
		return nil
	}
	return tracker
}
