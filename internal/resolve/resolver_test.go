package resolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptside/skillgate/internal/rules"
	"github.com/promptside/skillgate/internal/session"
)

func ruleset(skillRules ...rules.SkillRule) *rules.Ruleset {
	return rules.NewRuleset(skillRules)
}

func TestResolve_PathTrigger(t *testing.T) {
	rs := ruleset(rules.SkillRule{
		ID:           "backend-dev-guidelines",
		Kind:         rules.KindDomain,
		Enforcement:  rules.EnforceSuggest,
		Priority:     rules.PriorityHigh,
		PathPatterns: []string{"backend/**/*.ts"},
	})

	r := New(nil)
	result := r.Resolve(context.Background(), rs, "s1", "fix bug",
		[]string{"backend/src/controllers/TodoController.ts"})

	assert.Equal(t, VerdictSuggest, result.Verdict)
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, "backend-dev-guidelines", result.Decisions[0].RuleID)
	assert.Equal(t, MatchedByPath, result.Decisions[0].MatchedBy)
}

func TestResolve_PromptTriggerBlocks(t *testing.T) {
	rs := ruleset(rules.SkillRule{
		ID:             "frontend-dev-guidelines",
		Kind:           rules.KindDomain,
		Enforcement:    rules.EnforceBlock,
		Priority:       rules.PriorityMedium,
		PromptPatterns: []string{"drag and drop"},
	})

	r := New(nil)
	result := r.Resolve(context.Background(), rs, "s1", "add drag and drop reordering", nil)

	assert.Equal(t, VerdictBlock, result.Verdict)
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, MatchedByPrompt, result.Decisions[0].MatchedBy)
}

func TestResolve_NoMatch(t *testing.T) {
	rs := ruleset(
		rules.SkillRule{
			ID:           "backend-dev-guidelines",
			Kind:         rules.KindDomain,
			Enforcement:  rules.EnforceSuggest,
			Priority:     rules.PriorityHigh,
			PathPatterns: []string{"backend/**/*.ts"},
		},
	)

	r := New(nil)
	result := r.Resolve(context.Background(), rs, "s1", "what time is it", nil)

	assert.Equal(t, VerdictNone, result.Verdict)
	assert.Empty(t, result.Decisions)
}

func TestResolve_MatchedByBoth(t *testing.T) {
	rs := ruleset(rules.SkillRule{
		ID:             "backend-dev-guidelines",
		Kind:           rules.KindDomain,
		Enforcement:    rules.EnforceSuggest,
		Priority:       rules.PriorityHigh,
		PathPatterns:   []string{"backend/**"},
		PromptPatterns: []string{"endpoint"},
	})

	r := New(nil)
	result := r.Resolve(context.Background(), rs, "s1", "add an endpoint",
		[]string{"backend/src/app.ts"})

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, MatchedByBoth, result.Decisions[0].MatchedBy)
}

func TestResolve_PriorityOrdering(t *testing.T) {
	// Declared low before high: priority must win over declaration
	// order, and equal priorities must keep declaration order.
	rs := ruleset(
		rules.SkillRule{ID: "low-rule", Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
			Priority: rules.PriorityLow, PromptPatterns: []string{"deploy"}},
		rules.SkillRule{ID: "medium-b", Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
			Priority: rules.PriorityMedium, PromptPatterns: []string{"deploy"}},
		rules.SkillRule{ID: "high-rule", Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
			Priority: rules.PriorityHigh, PromptPatterns: []string{"deploy"}},
		rules.SkillRule{ID: "medium-a", Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
			Priority: rules.PriorityMedium, PromptPatterns: []string{"deploy"}},
	)

	r := New(nil)
	result := r.Resolve(context.Background(), rs, "s1", "deploy the service", nil)

	require.Len(t, result.Decisions, 4)
	ids := []string{
		result.Decisions[0].RuleID,
		result.Decisions[1].RuleID,
		result.Decisions[2].RuleID,
		result.Decisions[3].RuleID,
	}
	assert.Equal(t, []string{"high-rule", "medium-b", "medium-a", "low-rule"}, ids)
}

func TestResolve_BlockDominance(t *testing.T) {
	skillRules := make([]rules.SkillRule, 0, 10)
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9"} {
		skillRules = append(skillRules, rules.SkillRule{
			ID: id, Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
			Priority: rules.PriorityHigh, PromptPatterns: []string{"deploy"},
		})
	}
	skillRules = append(skillRules, rules.SkillRule{
		ID: "the-guardrail", Kind: rules.KindGuardrail, Enforcement: rules.EnforceBlock,
		Priority: rules.PriorityLow, PromptPatterns: []string{"deploy"},
	})

	r := New(nil)
	result := r.Resolve(context.Background(), ruleset(skillRules...), "s1", "deploy now", nil)

	assert.Equal(t, VerdictBlock, result.Verdict)
	assert.Len(t, result.Decisions, 10)
	// The blocking rule sorts last (low priority) yet still blocks.
	assert.Equal(t, "the-guardrail", result.Decisions[9].RuleID)
}

func TestResolve_Deterministic(t *testing.T) {
	rs := ruleset(
		rules.SkillRule{ID: "a", Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
			Priority: rules.PriorityMedium, PromptPatterns: []string{"re:dep.*"}},
		rules.SkillRule{ID: "b", Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
			Priority: rules.PriorityMedium, PathPatterns: []string{"**/*.go"}},
	)

	r := New(nil)
	first := r.Resolve(context.Background(), rs, "s1", "deploy", []string{"cmd/main.go"})
	for i := 0; i < 20; i++ {
		again := r.Resolve(context.Background(), rs, "s1", "deploy", []string{"cmd/main.go"})
		require.Equal(t, first, again)
	}
}

func TestResolve_FailOpenOnBadPattern(t *testing.T) {
	// A ruleset built programmatically can carry a regex that never
	// compiles. The rule is a silent non-match; every other rule still
	// resolves.
	rs := ruleset(
		rules.SkillRule{ID: "broken", Kind: rules.KindDomain, Enforcement: rules.EnforceBlock,
			Priority: rules.PriorityHigh, PromptPatterns: []string{"re:(unclosed"}},
		rules.SkillRule{ID: "working", Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
			Priority: rules.PriorityLow, PromptPatterns: []string{"unclosed"}},
	)

	r := New(nil)
	result := r.Resolve(context.Background(), rs, "s1", "fix the (unclosed bracket", nil)

	assert.Equal(t, VerdictSuggest, result.Verdict)
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, "working", result.Decisions[0].RuleID)
}

func TestResolve_DisabledRuleNeverActivates(t *testing.T) {
	rs := ruleset(rules.SkillRule{
		ID: "disabled", Kind: rules.KindGuardrail, Enforcement: rules.EnforceBlock,
		Priority: rules.PriorityHigh,
	})

	r := New(nil)
	result := r.Resolve(context.Background(), rs, "s1", "anything at all", []string{"any/path.go"})

	assert.Equal(t, VerdictNone, result.Verdict)
	assert.Empty(t, result.Decisions)
}

func TestResolve_EmptyRuleset(t *testing.T) {
	r := New(nil)
	result := r.Resolve(context.Background(), rules.NewRuleset(nil), "s1", "anything", nil)

	assert.Equal(t, VerdictNone, result.Verdict)
	assert.Empty(t, result.Decisions)
}

func TestResolve_MergesRecentPaths(t *testing.T) {
	tracker, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer tracker.Close()

	ctx := context.Background()
	require.NoError(t, tracker.Record(ctx, "s1", session.FileEvent{Path: "backend/src/app.ts", Tool: "modify"}))

	rs := ruleset(rules.SkillRule{
		ID: "backend-dev-guidelines", Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
		Priority: rules.PriorityHigh, PathPatterns: []string{"backend/**/*.ts"},
	})

	// The prompt names no paths; the rule activates through the
	// session's recent-edit history.
	r := New(tracker)
	result := r.Resolve(ctx, rs, "s1", "keep going", nil)

	assert.Equal(t, VerdictSuggest, result.Verdict)
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, MatchedByPath, result.Decisions[0].MatchedBy)

	// A different session sees none of that history.
	other := r.Resolve(ctx, rs, "s2", "keep going", nil)
	assert.Equal(t, VerdictNone, other.Verdict)
}

func TestResolve_LookbackWindowBounds(t *testing.T) {
	tracker, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer tracker.Close()

	ctx := context.Background()
	// One matching edit pushed out of a window of 2 by later events.
	require.NoError(t, tracker.Record(ctx, "s1", session.FileEvent{Path: "backend/app.ts", Tool: "modify"}))
	require.NoError(t, tracker.Record(ctx, "s1", session.FileEvent{Path: "docs/a.md", Tool: "modify"}))
	require.NoError(t, tracker.Record(ctx, "s1", session.FileEvent{Path: "docs/b.md", Tool: "modify"}))

	rs := ruleset(rules.SkillRule{
		ID: "backend-dev-guidelines", Kind: rules.KindDomain, Enforcement: rules.EnforceSuggest,
		Priority: rules.PriorityHigh, PathPatterns: []string{"backend/**/*.ts"},
	})

	r := New(tracker, WithLookback(2))
	result := r.Resolve(ctx, rs, "s1", "continue", nil)
	assert.Equal(t, VerdictNone, result.Verdict)

	wide := New(tracker, WithLookback(20))
	result = wide.Resolve(ctx, rs, "s1", "continue", nil)
	assert.Equal(t, VerdictSuggest, result.Verdict)
}
