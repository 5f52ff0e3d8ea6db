package rules

import (
	"log/slog"
	"sync/atomic"
)

// Store owns the in-memory ruleset for the lifetime of the process.
//
// Reload semantics: Load replaces the cached ruleset atomically, so a
// concurrent reader sees either the old set or the new set, never a
// half-updated one. When a reload fails with a ConfigError the last
// good ruleset stays in place; a store that has never loaded anything
// serves the empty ruleset.
type Store struct {
	current atomic.Pointer[Ruleset]
}

// NewStore creates a store serving the empty ruleset.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewRuleset(nil))
	return s
}

// Load reads the ruleset source at path and swaps it in. Dropped rules
// are logged as warnings and the load still succeeds. On a ConfigError
// the previous ruleset is kept and the error returned.
func (s *Store) Load(path string) error {
	rs, warnings, err := Load(path)
	if err != nil {
		slog.Error("ruleset load failed, keeping previous ruleset",
			"source", path,
			"error", err,
		)
		return err
	}

	for _, w := range warnings {
		slog.Warn("skill rule dropped during load",
			"source", path,
			"rule", w.RuleID,
			"reason", w.Reason,
		)
	}

	s.current.Store(rs)
	slog.Debug("ruleset loaded",
		"source", path,
		"rules", rs.Len(),
		"dropped", len(warnings),
	)
	return nil
}

// Ruleset returns the current ruleset. Never nil.
func (s *Store) Ruleset() *Ruleset {
	return s.current.Load()
}
