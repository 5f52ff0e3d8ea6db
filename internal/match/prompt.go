package match

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// RegexPrefix marks a prompt pattern as a regular expression. Patterns
// without the prefix are plain keywords matched as case-insensitive
// substrings.
const RegexPrefix = "re:"

// regexCache holds compiled prompt regexes for the lifetime of the
// process, keyed by the full pattern string (including the "re:" prefix).
//
// A nil entry records a pattern that failed to compile: it stays a
// non-match forever and its compile error has already been logged.
var regexCache sync.Map // string -> *regexp.Regexp (nil = known bad)

// Prompt reports whether promptText satisfies a single prompt pattern.
//
// Two pattern forms are supported:
//   - plain keyword: case-insensitive substring match
//   - "re:<expr>": Go regular expression, compiled once per process
//
// Prompt text is normalized to NFC before matching so composed and
// decomposed Unicode spellings of the same text match the same patterns.
//
// A malformed regex never fails the call: it is logged once per distinct
// pattern and treated as a non-match from then on.
func Prompt(pattern, promptText string) bool {
	text := norm.NFC.String(promptText)

	expr, ok := strings.CutPrefix(pattern, RegexPrefix)
	if !ok {
		return strings.Contains(strings.ToLower(text), strings.ToLower(norm.NFC.String(pattern)))
	}

	re := compileCached(pattern, expr)
	if re == nil {
		return false
	}
	return re.MatchString(text)
}

// PromptAny reports whether promptText satisfies at least one pattern.
func PromptAny(patterns []string, promptText string) bool {
	for _, pattern := range patterns {
		if Prompt(pattern, promptText) {
			return true
		}
	}
	return false
}

// CompileRegex validates a "re:"-form pattern eagerly. Used by the rule
// loader so malformed regexes are caught (and their rules dropped) at
// load time rather than discovered mid-resolution.
func CompileRegex(pattern string) error {
	expr, ok := strings.CutPrefix(pattern, RegexPrefix)
	if !ok {
		return nil
	}
	_, err := regexp.Compile(expr)
	return err
}

// compileCached returns the compiled regex for pattern, compiling and
// caching it on first use. Returns nil for patterns that do not compile.
func compileCached(pattern, expr string) *regexp.Regexp {
	if cached, ok := regexCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		// First store wins; the loser's duplicate log line is
		// acceptable only if two goroutines race the very first use.
		if _, loaded := regexCache.LoadOrStore(pattern, (*regexp.Regexp)(nil)); !loaded {
			slog.Warn("prompt pattern does not compile, treating as non-match",
				"pattern", pattern,
				"error", err,
			)
		}
		return nil
	}

	actual, _ := regexCache.LoadOrStore(pattern, re)
	compiled, _ := actual.(*regexp.Regexp)
	return compiled
}
