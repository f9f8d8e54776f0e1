package source

import "regexp"

// commentPattern matches quoted strings as well as line (`//`), hash (`#`) and
// block comments. Strings are matched so that comment openers inside them,
// such as "http://" or '#', are left alone. A single leftmost-first pass keeps
// Normalize idempotent: removing one comment can never splice two fragments
// into a new comment opener.
var commentPattern = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"|//[^\r\n]*|#[^\r\n]*|(?s:/\*.*?\*/)`)

// Normalize strips every comment from raw source text. String literals and
// line endings are left in place so line structure outside comments is
// preserved.
func Normalize(text string) string {
	return commentPattern.ReplaceAllStringFunc(text, func(m string) string {
		if m[0] == '\'' || m[0] == '"' {
			return m
		}
		return ""
	})
}
