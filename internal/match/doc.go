// Package match implements the two trigger matchers used by the
// activation resolver.
//
// Path tests repository-relative file paths against glob-style
// patterns. Prompt tests prompt text against keyword and regex
// patterns.
//
// CRITICAL PATTERNS:
//
// Compile-once cache:
// Regex patterns are compiled at most once per process, keyed by the
// pattern string. A pattern that fails to compile is remembered as bad
// and treated as a non-match on every subsequent call. The failure is
// logged exactly once per distinct pattern to avoid log flooding.
//
// Fail-open matching:
// No matcher call ever returns an error to its caller. A malformed
// pattern is a non-match, not a failure - degraded guidance is always
// preferred over a stalled host agent.
package match
