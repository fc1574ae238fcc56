package report

import (
	"fmt"
	"io"
	"strings"
)

// longestRun returns the longest run of c in s.
func longestRun(s string, c byte) int {
	longest, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			longest = max(longest, cur)
		} else {
			cur = 0
		}
	}
	return longest
}

// code renders s as an inline code span that survives backticks in s.
func code(s string) string {
	ticks := strings.Repeat("`", longestRun(s, '`')+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		s = " " + s + " "
	}
	return ticks + s + ticks
}

// cell escapes pipes so content stays inside a table cell.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var escaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", "&lt;", ">", "&gt;", "#", `\#`, "|", `\|`,
)

// escape neutralizes markdown in free text.
func escape(s string) string {
	return escaper.Replace(strings.TrimSpace(s))
}

// writeFence writes body in a fenced block long enough to contain any
// backtick runs inside it.
func writeFence(w io.Writer, lang, body string) {
	fence := strings.Repeat("`", max(3, longestRun(body, '`')+1))
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	fmt.Fprintf(w, "%s%s\n%s%s\n\n", fence, lang, body, fence)
}
