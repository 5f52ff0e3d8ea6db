package resolve

import "github.com/promptside/skillgate/internal/rules"

// Verdict is the overall outcome of resolving one prompt event.
type Verdict string

const (
	// VerdictNone means no rule activated.
	VerdictNone Verdict = "none"
	// VerdictSuggest means at least one advisory rule activated and
	// none of the activated rules blocks.
	VerdictSuggest Verdict = "suggest"
	// VerdictBlock means at least one activated rule has block
	// enforcement. Blocking is all-or-nothing at the result level.
	VerdictBlock Verdict = "block"
)

// MatchedBy records which trigger kind activated a rule.
type MatchedBy string

const (
	MatchedByPath   MatchedBy = "path"
	MatchedByPrompt MatchedBy = "prompt"
	MatchedByBoth   MatchedBy = "both"
)

// Decision is one activated rule in the resolved result.
type Decision struct {
	RuleID      string
	Enforcement rules.Enforcement
	Priority    rules.Priority
	MatchedBy   MatchedBy
}

// Result is the outcome of resolving one prompt event.
//
// Decisions are ordered by (priority desc, declaration order asc).
// INVARIANT: Verdict is VerdictBlock iff at least one decision has
// block enforcement.
type Result struct {
	Verdict   Verdict
	Decisions []Decision
}

// verdictOf derives the overall verdict from the decision list.
func verdictOf(decisions []Decision) Verdict {
	if len(decisions) == 0 {
		return VerdictNone
	}
	for _, d := range decisions {
		if d.Enforcement == rules.EnforceBlock {
			return VerdictBlock
		}
	}
	return VerdictSuggest
}
