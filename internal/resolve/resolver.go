// Package resolve implements activation resolution: combining path and
// prompt trigger matches with session file-change history into one
// ordered suggestion/block decision.
//
// CRITICAL PATTERNS:
//
// Deterministic ordering:
// Rules are evaluated in declaration order. Activated rules are sorted
// by priority with a stable sort, so equal priorities keep declaration
// order. Identical inputs always produce identical results.
//
// Fail-open per rule:
// A rule whose evaluation cannot proceed is skipped and logged;
// resolution as a whole never fails. A fully broken ruleset yields an
// empty, non-blocking result rather than stalling the host agent.
package resolve

import (
	"context"
	"log/slog"
	"sort"

	"github.com/promptside/skillgate/internal/match"
	"github.com/promptside/skillgate/internal/rules"
	"github.com/promptside/skillgate/internal/session"
)

// DefaultLookback is the default number of recent file events merged
// into the touched-path set. A prompt often refers to work implied by
// files the user just edited rather than files named in the prompt, so
// a small bounded window keeps relevance high without unbounded growth.
const DefaultLookback = 20

// Resolver resolves prompt events against the current ruleset and the
// session's recent file history.
type Resolver struct {
	tracker  *session.Tracker
	lookback int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookback overrides the recent-path lookback window.
func WithLookback(n int) Option {
	return func(r *Resolver) {
		r.lookback = n
	}
}

// New creates a Resolver reading session history from tracker. A nil
// tracker is valid: resolution then considers only the event's own
// touched paths.
func New(tracker *session.Tracker, opts ...Option) *Resolver {
	r := &Resolver{
		tracker:  tracker,
		lookback: DefaultLookback,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve evaluates every rule in rs against the prompt text and the
// union of touchedPaths with the session's recent paths.
//
// The ruleset is an explicit parameter rather than ambient state: the
// caller decides which loaded ruleset a resolution sees.
func (r *Resolver) Resolve(ctx context.Context, rs *rules.Ruleset, sessionID, promptText string, touchedPaths []string) Result {
	paths := r.mergeRecentPaths(ctx, sessionID, touchedPaths)

	var decisions []Decision
	for _, rule := range rs.Rules() {
		// A rule with no triggers is disabled, not an error.
		if rule.Disabled() {
			continue
		}

		matchedByPath := match.PathAny(rule.PathPatterns, paths)
		matchedByPrompt := promptText != "" && match.PromptAny(rule.PromptPatterns, promptText)

		if !matchedByPath && !matchedByPrompt {
			continue
		}

		slog.Debug("skill rule activated",
			"rule", rule.ID,
			"enforcement", rule.Enforcement,
			"priority", rule.Priority,
			"by_path", matchedByPath,
			"by_prompt", matchedByPrompt,
		)

		decisions = append(decisions, Decision{
			RuleID:      rule.ID,
			Enforcement: rule.Enforcement,
			Priority:    rule.Priority,
			MatchedBy:   matchedBy(matchedByPath, matchedByPrompt),
		})
	}

	// Stable sort: equal priorities keep declaration order.
	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Priority.Rank() < decisions[j].Priority.Rank()
	})

	return Result{
		Verdict:   verdictOf(decisions),
		Decisions: decisions,
	}
}

// mergeRecentPaths unions the event's own paths with the session's
// recent-path window. A persistence failure degrades to the touched
// paths alone - reduced guidance, never a failed resolution.
func (r *Resolver) mergeRecentPaths(ctx context.Context, sessionID string, touchedPaths []string) []string {
	paths := append([]string(nil), touchedPaths...)

	if r.tracker == nil || sessionID == "" || r.lookback <= 0 {
		return paths
	}

	recent, err := r.tracker.RecentPaths(ctx, sessionID, r.lookback)
	if err != nil {
		slog.Warn("reading recent paths failed, resolving with touched paths only",
			"session", sessionID,
			"error", err,
		)
		return paths
	}

	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		seen[p] = true
	}
	for _, p := range recent {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

func matchedBy(byPath, byPrompt bool) MatchedBy {
	switch {
	case byPath && byPrompt:
		return MatchedByBoth
	case byPath:
		return MatchedByPath
	default:
		return MatchedByPrompt
	}
}
