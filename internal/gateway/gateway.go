// Package gateway is the boundary adapter between the host agent and
// the engine core.
//
// The host spawns one engine process per event and sends a single
// request; the gateway routes it to the file-change tracker or the
// activation resolver and returns a single response.
//
// ARCHITECTURE:
//
// Deadline fail-open:
// Every event carries an implicit deadline. If handling exceeds it, the
// gateway returns the empty non-blocking response instead of stalling
// the host agent. Block verdicts only ever come from explicitly matched
// guardrail rules, never from internal errors or timeouts.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/promptside/skillgate/internal/resolve"
	"github.com/promptside/skillgate/internal/rules"
	"github.com/promptside/skillgate/internal/session"
)

// DefaultDeadline bounds the handling of one event. Invocations are
// short enough that this is the only timeout mechanism; nothing is
// cancellable mid-flight.
const DefaultDeadline = 300 * time.Millisecond

// TraceTokenGenerator stamps responses with a correlation token.
// session.UUIDv7Generator is the production implementation;
// session.NewFixedGenerator serves deterministic tests.
type TraceTokenGenerator interface {
	Generate() string
}

// Recorder appends file events to session state. Implemented by
// *session.Tracker.
type Recorder interface {
	Record(ctx context.Context, sessionID string, ev session.FileEvent) error
}

// PromptResolver resolves prompt events against a ruleset. Implemented
// by *resolve.Resolver.
type PromptResolver interface {
	Resolve(ctx context.Context, rs *rules.Ruleset, sessionID, promptText string, touchedPaths []string) resolve.Result
}

// Gateway dispatches host events to the tracker and resolver.
type Gateway struct {
	store    *rules.Store
	tracker  Recorder
	resolver PromptResolver
	traceGen TraceTokenGenerator
	deadline time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithDeadline overrides the per-event deadline.
func WithDeadline(d time.Duration) Option {
	return func(g *Gateway) {
		g.deadline = d
	}
}

// WithTraceTokenGenerator overrides the trace token source.
func WithTraceTokenGenerator(gen TraceTokenGenerator) Option {
	return func(g *Gateway) {
		g.traceGen = gen
	}
}

// New creates a Gateway over the given rule store, tracker, and
// resolver. A nil tracker is valid: tool events are then dropped with a
// warning but still acknowledged.
func New(store *rules.Store, tracker Recorder, resolver PromptResolver, opts ...Option) *Gateway {
	g := &Gateway{
		store:    store,
		tracker:  tracker,
		resolver: resolver,
		traceGen: session.UUIDv7Generator{},
		deadline: DefaultDeadline,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle processes one event and returns the response. It never returns
// an error for internal failures - those degrade to the empty
// non-blocking response. The only caller-visible failure is a
// structurally invalid request, which Validate catches before Handle.
func (g *Gateway) Handle(ctx context.Context, req Request) Response {
	traceID := g.traceGen.Generate()

	ctx, cancel := context.WithTimeout(ctx, g.deadline)
	defer cancel()

	done := make(chan Response, 1)
	go func() {
		done <- g.dispatch(ctx, req, traceID)
	}()

	select {
	case resp := <-done:
		return resp
	case <-ctx.Done():
		slog.Warn("event handling exceeded deadline, failing open",
			"trace", traceID,
			"event", req.EventKind,
			"session", req.SessionID,
			"deadline", g.deadline,
		)
		return emptyResponse(traceID)
	}
}

func (g *Gateway) dispatch(ctx context.Context, req Request, traceID string) Response {
	switch req.EventKind {
	case EventToolCompleted:
		return g.handleToolCompleted(ctx, req, traceID)
	case EventPromptSubmitted:
		return g.handlePromptSubmitted(ctx, req, traceID)
	default:
		// Validate rejects unknown kinds before Handle; reaching
		// here still fails open.
		return emptyResponse(traceID)
	}
}

// handleToolCompleted records the file event. Recording never blocks
// the host: a persistence failure drops the event with a warning and
// still acknowledges.
func (g *Gateway) handleToolCompleted(ctx context.Context, req Request, traceID string) Response {
	ev := session.FileEvent{
		Path: req.ToolEvent.Path,
		Tool: req.ToolEvent.Tool,
	}
	if g.tracker == nil {
		slog.Warn("no session store, file event dropped",
			"trace", traceID,
			"session", req.SessionID,
			"path", ev.Path,
		)
		return emptyResponse(traceID)
	}
	if err := g.tracker.Record(ctx, req.SessionID, ev); err != nil {
		slog.Warn("file event dropped",
			"trace", traceID,
			"session", req.SessionID,
			"path", ev.Path,
			"error", err,
		)
	} else {
		slog.Debug("file event recorded",
			"trace", traceID,
			"session", req.SessionID,
			"path", ev.Path,
			"tool", ev.Tool,
		)
	}
	return emptyResponse(traceID)
}

func (g *Gateway) handlePromptSubmitted(ctx context.Context, req Request, traceID string) Response {
	result := g.resolver.Resolve(ctx, g.store.Ruleset(), req.SessionID, req.PromptText, req.TouchedPaths)

	slog.Debug("prompt resolved",
		"trace", traceID,
		"session", req.SessionID,
		"verdict", result.Verdict,
		"activated", len(result.Decisions),
	)

	return responseFrom(result, traceID)
}
