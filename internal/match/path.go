package match

import "strings"

// Path reports whether a repository-relative path satisfies a glob-style
// pattern.
//
// Pattern syntax:
//   - "*"  matches any run of characters within one path segment
//     (never crosses a "/")
//   - "**" as a full segment matches zero or more whole segments
//   - any other segment text is matched literally, with "*" allowed
//     inside a segment (e.g. "*.ts")
//
// Matching is case-sensitive and anchored: the pattern must cover the
// whole path, there is no implicit prefix or suffix matching.
//
// The empty path never matches any pattern.
func Path(pattern, path string) bool {
	if path == "" {
		return false
	}

	patSegs := strings.Split(pattern, "/")
	pathSegs := strings.Split(path, "/")

	return matchSegments(patSegs, pathSegs)
}

// matchSegments matches pattern segments against path segments.
//
// "**" is handled here because it is the only construct that can consume
// a variable number of whole segments. Everything else delegates to
// matchSegment.
func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			// Trailing "**" matches everything that remains,
			// including nothing.
			if len(pat) == 1 {
				return true
			}
			// Try consuming 0..len(segs) segments.
			for skip := 0; skip <= len(segs); skip++ {
				if matchSegments(pat[1:], segs[skip:]) {
					return true
				}
			}
			return false
		}

		if len(segs) == 0 {
			return false
		}
		if !matchSegment(pat[0], segs[0]) {
			return false
		}
		pat = pat[1:]
		segs = segs[1:]
	}

	return len(segs) == 0
}

// matchSegment matches a single pattern segment against a single path
// segment. "*" matches any run of characters; all other characters match
// literally. Iterative backtracking over the last "*" seen, the classic
// wildcard algorithm.
func matchSegment(pat, seg string) bool {
	pi, si := 0, 0
	starPat, starSeg := -1, 0

	for si < len(seg) {
		switch {
		case pi < len(pat) && pat[pi] == '*':
			starPat = pi
			starSeg = si
			pi++
		case pi < len(pat) && pat[pi] == seg[si]:
			pi++
			si++
		case starPat >= 0:
			// Backtrack: let the last "*" absorb one more character.
			starSeg++
			si = starSeg
			pi = starPat + 1
		default:
			return false
		}
	}

	// Trailing "*"s in the pattern match the empty string.
	for pi < len(pat) && pat[pi] == '*' {
		pi++
	}
	return pi == len(pat)
}

// PathAny reports whether any path in paths satisfies any pattern in
// patterns. Used by the resolver to evaluate a rule's file triggers
// against the touched-path set.
func PathAny(patterns, paths []string) bool {
	for _, pattern := range patterns {
		for _, path := range paths {
			if Path(pattern, path) {
				return true
			}
		}
	}
	return false
}
