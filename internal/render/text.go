package render

import (
	"strings"
	"unicode/utf8"
)

// htmlEscaper replaces only the characters significant to Telegram's HTML
// mode. strings.Replacer scans the input once, so an ampersand introduced by
// an earlier replacement is never escaped again.
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Esc escapes &, < and > for Telegram HTML parse mode.
func Esc(s string) string { return htmlEscaper.Replace(s) }

// Truncate returns s cut to at most n runes, appending marker only when
// something was actually removed.
func Truncate(s string, n int, marker string) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + marker
		}
		count++
	}
	return s
}

// OrPlaceholder returns placeholder when s is empty or whitespace-only.
func OrPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
