package rules

import (
	"fmt"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// loadCUE loads a ruleset from a single CUE file.
//
// The document shape matches the YAML form: a top-level "skills" struct
// mapping skill id to rule record. Field iteration order in CUE follows
// declaration order, which preserves the tie-break ordering the
// resolver depends on.
func loadCUE(path string) (*Ruleset, []Warning, error) {
	dir := filepath.Dir(path)
	cfg := &load.Config{Dir: dir}

	instances := load.Instances([]string{filepath.Base(path)}, cfg)
	if len(instances) == 0 {
		return nil, nil, &ConfigError{Source: path, Err: fmt.Errorf("no CUE instances loaded")}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, nil, &ConfigError{Source: path, Err: inst.Err}
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, nil, &ConfigError{Source: path, Err: err}
	}

	skills := value.LookupPath(cue.ParsePath("skills"))
	if !skills.Exists() {
		return nil, nil, &ConfigError{Source: path, Err: fmt.Errorf("missing top-level %q struct", "skills")}
	}

	iter, err := skills.Fields()
	if err != nil {
		return nil, nil, &ConfigError{Source: path, Err: fmt.Errorf("%q is not a struct: %w", "skills", err)}
	}

	var (
		loaded   []SkillRule
		warnings []Warning
		seen     = make(map[string]bool)
	)

	for iter.Next() {
		id := iter.Selector().Unquoted()

		var spec ruleSpec
		if err := iter.Value().Decode(&spec); err != nil {
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
