package gateway

import (
	"fmt"

	"github.com/promptside/skillgate/internal/resolve"
)

// Event kinds accepted by the gateway.
const (
	EventPromptSubmitted = "prompt_submitted"
	EventToolCompleted   = "tool_completed"
)

// Request is one event from the host agent.
//
// PromptText and TouchedPaths are set for prompt_submitted events;
// ToolEvent is set for tool_completed events.
type Request struct {
	EventKind    string     `json:"eventKind"`
	SessionID    string     `json:"sessionId"`
	PromptText   string     `json:"promptText,omitempty"`
	TouchedPaths []string   `json:"touchedPaths,omitempty"`
	ToolEvent    *ToolEvent `json:"toolEvent,omitempty"`
}

// ToolEvent describes one completed file-editing operation.
type ToolEvent struct {
	Path string `json:"path"`
	Tool string `json:"tool"`
}

// Validate checks the request's structural shape. A structurally bad
// request is the one case the gateway does not fail open on: the host
// gets a non-zero exit and proceeds without suggestions.
func (r *Request) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	switch r.EventKind {
	case EventPromptSubmitted:
		return nil
	case EventToolCompleted:
		if r.ToolEvent == nil || r.ToolEvent.Path == "" {
			return fmt.Errorf("tool_completed event requires toolEvent.path")
		}
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", r.EventKind)
	}
}

// ActivatedSkill is one activated rule in the response, in resolved
// order.
type ActivatedSkill struct {
	ID          string `json:"id"`
	Enforcement string `json:"enforcement"`
	Priority    string `json:"priority"`
	MatchedBy   string `json:"matchedBy"`
}

// Response is the structured reply for one event.
//
// For tool_completed events the verdict is always "none" - recording
// never blocks. TraceID correlates host-side logs with engine logs.
type Response struct {
	Verdict         string           `json:"verdict"`
	ActivatedSkills []ActivatedSkill `json:"activatedSkills"`
	TraceID         string           `json:"traceId,omitempty"`
}

// responseFrom converts a resolver result into the wire response.
func responseFrom(result resolve.Result, traceID string) Response {
	skills := make([]ActivatedSkill, 0, len(result.Decisions))
	for _, d := range result.Decisions {
		skills = append(skills, ActivatedSkill{
			ID:          d.RuleID,
			Enforcement: string(d.Enforcement),
			Priority:    string(d.Priority),
			MatchedBy:   string(d.MatchedBy),
		})
	}
	return Response{
		Verdict:         string(result.Verdict),
		ActivatedSkills: skills,
		TraceID:         traceID,
	}
}

// emptyResponse is the fail-open reply: no suggestions, no block.
func emptyResponse(traceID string) Response {
	return Response{
		Verdict:         string(resolve.VerdictNone),
		ActivatedSkills: []ActivatedSkill{},
		TraceID:         traceID,
	}
}
