package session

// StructureConfig controls project-structure inference.
//
// The exact frequency threshold and the reserved-name list are
// deliberately configuration, not engine constants. The defaults below
// are the documented choice: a segment is recognized after being seen
// twice, or immediately when it carries a conventional top-level layout
// name.
type StructureConfig struct {
	// Threshold is the number of distinct events touching a top-level
	// segment before it becomes a recognized component.
	Threshold int

	// ReservedNames are recognized as components on first sight.
	ReservedNames []string
}

// DefaultStructureConfig returns the documented defaults: threshold 2
// and the common top-level layout names.
func DefaultStructureConfig() StructureConfig {
	return StructureConfig{
		Threshold: 2,
		ReservedNames: []string{
			"frontend", "backend", "shared",
			"src", "lib", "api", "web",
			"server", "client", "pkg",
			"internal", "cmd", "docs", "tests",
		},
	}
}

// Reserved reports whether segment is on the reserved-name list.
func (c StructureConfig) Reserved(segment string) bool {
	for _, name := range c.ReservedNames {
		if name == segment {
			return true
		}
	}
	return false
}
