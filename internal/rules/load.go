package rules

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/promptside/skillgate/internal/match"
)

// ruleSpec is the per-skill record in the ruleset document.
//
// Document shape (YAML shown; CUE sources decode to the same record):
//
//	skills:
//	  backend-dev-guidelines:
//	    type: domain
//	    enforcement: suggest
//	    priority: high
//	    fileTriggers:
//	      pathPatterns: ["backend/**/*.ts"]
//	    promptTriggers: ["endpoint", "re:\\bapi\\b"]
type ruleSpec struct {
	Type         string       `yaml:"type" json:"type"`
	Enforcement  string       `yaml:"enforcement" json:"enforcement"`
	Priority     string       `yaml:"priority" json:"priority"`
	FileTriggers fileTriggers `yaml:"fileTriggers" json:"fileTriggers"`
	// PromptTriggers are keyword patterns, or regexes marked with "re:".
	PromptTriggers []string `yaml:"promptTriggers" json:"promptTriggers"`
}

type fileTriggers struct {
	PathPatterns []string `yaml:"pathPatterns" json:"pathPatterns"`
}

// Load reads a ruleset source file and returns the validated ruleset
// plus warnings for every rule that had to be dropped.
//
// Individually invalid rules never fail the load: they are dropped and
// reported as warnings. The whole load fails only when the source is
// unreadable or not valid structured data at the top level, in which
// case the error is a *ConfigError.
//
// Sources ending in ".cue" are loaded with the CUE toolchain; everything
// else is parsed as YAML (which covers JSON as well).
func Load(path string) (*Ruleset, []Warning, error) {
	if filepath.Ext(path) == ".cue" {
		return loadCUE(path)
	}
	return loadYAML(path)
}

func loadYAML(path string) (*Ruleset, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &ConfigError{Source: path, Err: err}
	}

	// Decode through yaml.Node rather than a map: the document maps
	// skill id -> record, and Go maps would lose the declaration
	// order that breaks priority ties.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, &ConfigError{Source: path, Err: err}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		// Empty document: valid, just no skills.
		return NewRuleset(nil), nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil, &ConfigError{Source: path, Err: fmt.Errorf("top level must be a mapping, got %s", nodeKind(root))}
	}

	skills := findMappingValue(root, "skills")
	if skills == nil {
		return nil, nil, &ConfigError{Source: path, Err: fmt.Errorf("missing top-level %q mapping", "skills")}
	}
	if skills.Kind != yaml.MappingNode {
		return nil, nil, &ConfigError{Source: path, Err: fmt.Errorf("%q must be a mapping, got %s", "skills", nodeKind(skills))}
	}

	var (
		loaded   []SkillRule
		warnings []Warning
		seen     = make(map[string]bool)
	)

	// Mapping node content alternates key, value - iteration order is
	// declaration order.
	for i := 0; i+1 < len(skills.Content); i += 2 {
		id := skills.Content[i].Value

		var spec ruleSpec
		if err := skills.Content[i+1].Decode(&spec); err != nil {
			warnings = append(warnings, Warning{RuleID: id, Reason: fmt.Sprintf("invalid record: %v", err)})
			continue
		}

		rule, warns := validateRule(id, spec, seen)
		warnings = append(warnings, warns...)
		if rule == nil {
			continue
		}
		seen[id] = true
		loaded = append(loaded, *rule)
	}

	return NewRuleset(loaded), warnings, nil
}

// validateRule checks one decoded rule. Returns nil (plus warnings) if
// the rule must be dropped.
func validateRule(id string, spec ruleSpec, seen map[string]bool) (*SkillRule, []Warning) {
	if seen[id] {
		return nil, []Warning{{RuleID: id, Reason: "duplicate rule id"}}
	}

	kind := Kind(spec.Type)
	if kind != KindDomain && kind != KindGuardrail {
		return nil, []Warning{{RuleID: id, Reason: fmt.Sprintf("unrecognized type %q", spec.Type)}}
	}

	enforcement := Enforcement(spec.Enforcement)
	if enforcement != EnforceSuggest && enforcement != EnforceBlock {
		return nil, []Warning{{RuleID: id, Reason: fmt.Sprintf("unrecognized enforcement %q", spec.Enforcement)}}
	}

	priority := Priority(spec.Priority)
	if priority != PriorityHigh && priority != PriorityMedium && priority != PriorityLow {
		return nil, []Warning{{RuleID: id, Reason: fmt.Sprintf("unrecognized priority %q", spec.Priority)}}
	}

	for _, pattern := range spec.FileTriggers.PathPatterns {
		if pattern == "" {
			return nil, []Warning{{RuleID: id, Reason: "empty path pattern"}}
		}
	}

	for _, pattern := range spec.PromptTriggers {
		if pattern == "" {
			return nil, []Warning{{RuleID: id, Reason: "empty prompt pattern"}}
		}
		if err := match.CompileRegex(pattern); err != nil {
			return nil, []Warning{{RuleID: id, Reason: fmt.Sprintf("prompt pattern %q does not compile: %v", pattern, err)}}
		}
	}

	return &SkillRule{
		ID:             id,
		Kind:           kind,
		Enforcement:    enforcement,
		Priority:       priority,
		PathPatterns:   append([]string(nil), spec.FileTriggers.PathPatterns...),
		PromptPatterns: append([]string(nil), spec.PromptTriggers...),
	}, nil
}

// findMappingValue returns the value node for key in a mapping node, or
// nil when absent.
func findMappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
