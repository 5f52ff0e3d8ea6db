// Package rules loads, validates, and caches the skill-rule
// configuration.
//
// A ruleset is an ordered list of skill rules. Declaration order in the
// source document is significant: it breaks priority ties during
// activation resolution, so loading preserves it exactly.
//
// INVARIANTS:
//   - Rule IDs within a loaded Ruleset are unique.
//   - A loaded Ruleset is immutable; reload swaps the whole value
//     atomically and readers never observe a partial update.
//   - A rule with no path patterns and no prompt patterns is disabled,
//     not an error.
package rules

import (
	"fmt"
)

// Kind classifies a skill rule.
type Kind string

const (
	// KindDomain is general guidance for a problem area.
	KindDomain Kind = "domain"
	// KindGuardrail is a must-follow constraint.
	KindGuardrail Kind = "guardrail"
)

// Enforcement controls what an activated rule does to the host agent's
// workflow.
type Enforcement string

const (
	// EnforceSuggest injects the skill as advisory context.
	EnforceSuggest Enforcement = "suggest"
	// EnforceBlock halts further action until acknowledged.
	EnforceBlock Enforcement = "block"
)

// Priority orders activated rules in the resolved decision list.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of a priority: lower rank sorts first.
// Unknown values rank below low, which cannot happen for a validated
// rule but keeps the ordering total.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// SkillRule is one configured skill with its activation policy.
type SkillRule struct {
	// ID is the unique, stable identifier of the skill.
	ID string

	// Kind is domain or guardrail.
	Kind Kind

	// Enforcement is suggest or block.
	Enforcement Enforcement

	// Priority is high, medium, or low. Ties are broken by
	// declaration order in the source document.
	Priority Priority

	// PathPatterns are glob-style file triggers, in declaration order.
	PathPatterns []string

	// PromptPatterns are keyword or "re:"-regex prompt triggers, in
	// declaration order.
	PromptPatterns []string
}

// Disabled reports whether the rule can never activate because it has
// no triggers at all.
func (r SkillRule) Disabled() bool {
	return len(r.PathPatterns) == 0 && len(r.PromptPatterns) == 0
}

// Ruleset is an immutable, validated set of skill rules in declaration
// order. The zero value is a valid empty ruleset.
type Ruleset struct {
	rules []SkillRule
}

// NewRuleset builds a ruleset from already-validated rules. The slice is
// copied so later mutation by the caller cannot change declaration order
// or contents.
func NewRuleset(skillRules []SkillRule) *Ruleset {
	copied := make([]SkillRule, len(skillRules))
	copy(copied, skillRules)
	return &Ruleset{rules: copied}
}

// Rules returns the rules in declaration order. Callers must not mutate
// the returned slice.
func (rs *Ruleset) Rules() []SkillRule {
	if rs == nil {
		return nil
	}
	return rs.rules
}

// Len returns the number of rules in the set.
func (rs *Ruleset) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// ConfigError reports a ruleset source that is unreadable or not valid
// structured data at the top level. Individual bad rules are never a
// ConfigError; they are dropped with a Warning instead.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ruleset config %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Warning records one rule that was dropped during load and why.
type Warning struct {
	RuleID string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("rule %q dropped: %s", w.RuleID, w.Reason)
}
