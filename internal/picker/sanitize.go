package picker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// ansiRE matches ANSI escape sequences: CSI (SGR, cursor movement), OSC
// (terminated by ST or BEL), charset designation, and other two-byte
// escapes. History entries can contain anything the user typed or pasted.
var ansiRE = regexp.MustCompile(`\x1b(?:` +
	`\[[0-9;]*[A-Za-z]` +
	`|` +
	`\].*?(?:\x1b\\|\x07)` +
	`|` +
	`[()][A-B0-2]` +
	`|` +
	`[#()*+\-./][A-Za-z0-9]` +
	`)`)

// CleanForDisplay makes an arbitrary command string safe to render in the
// terminal: ANSI escapes stripped, invalid UTF-8 replaced, newlines
// flattened.
func CleanForDisplay(s string) string {
	s = ansiRE.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if utf8.ValidString(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			b.WriteRune(utf8.RuneError)
			i++
			continue
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

// MiddleTruncate shortens s to maxWidth display columns by cutting the
// middle, keeping both the command head and its trailing arguments visible.
// Display-width aware: CJK and emoji count as two columns.
func MiddleTruncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	sw := runewidth.StringWidth(s)
	if sw <= maxWidth {
		return s
	}
	if maxWidth < 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}

	const ellipsis = "…"
	remaining := maxWidth - 1
	headWidth := (remaining + 1) / 2
	tailWidth := remaining / 2

	head := runewidth.Truncate(s, headWidth, "")
	tail := runewidth.TruncateLeft(s, sw-tailWidth, "")
	return head + ellipsis + tail
}
