package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/prsift/internal/diff"
	"github.com/sprite-ai/prsift/internal/model"
)

// renderedLine is a single line of diff output ready for display.
type renderedLine struct {
	OldNum  int // 0 means not applicable (add-only)
	NewNum  int // 0 means not applicable (delete-only)
	Type    model.LineType
	Content string
	IsHunk  bool

	// nil means no highlighting
	Tokens []diff.Token
}

// renderFile produces renderedLines for a scored file. Binary files and
// files without hunks yield a single placeholder line.
func renderFile(f model.FileDiff) []renderedLine {
	if f.Binary {
		return []renderedLine{{Type: model.LineContext, Content: "Binary file, no diff shown."}}
	}
	if len(f.Hunks) == 0 {
		return []renderedLine{{Type: model.LineContext, Content: fmt.Sprintf("No hunks (%s).", f.Status)}}
	}

	var lines []renderedLine
	for i, h := range f.Hunks {
		lines = append(lines, renderedLine{IsHunk: true, Content: h.Range()})

		highlighted := diff.HighlightHunk(f.Path, h)
		for j, l := range h.Lines {
			rl := renderedLine{Type: l.Type, Content: l.Content}
			if l.OldLineNum != nil {
				rl.OldNum = *l.OldLineNum
			}
			if l.NewLineNum != nil {
				rl.NewNum = *l.NewLineNum
			}
			if j < len(highlighted) {
				rl.Tokens = highlighted[j].Tokens
			}
			lines = append(lines, rl)
		}

		if i < len(f.Hunks)-1 {
			lines = append(lines, renderedLine{Type: model.LineContext})
		}
	}
	return lines
}

// renderHighlightedContent renders line content with syntax tokens.
func renderHighlightedContent(rl renderedLine, prefix string) string {
	if len(rl.Tokens) == 0 {
		return prefix + rl.Content
	}

	var b strings.Builder
	b.WriteString(prefix)
	for _, tok := range rl.Tokens {
		if tok.Color != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(tok.Color)).Render(tok.Text))
		} else {
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

func lineNumber(n int) string {
	if n > 0 {
		return fmt.Sprintf("%4d", n)
	}
	return "    "
}

// styleLine applies styling to a rendered line for unified view.
func styleLine(rl renderedLine, width int) string {
	if rl.IsHunk {
		return hunkHeaderStyle.Width(width).Render(truncate(rl.Content, width))
	}

	lineNums := lineNumberStyle.Render(lineNumber(rl.OldNum)) + " " + lineNumberStyle.Render(lineNumber(rl.NewNum))
	maxContent := width - 12

	var content string
	switch rl.Type {
	case model.LineAdd:
		content = addedLineStyle.Render(truncate("+"+rl.Content, maxContent))
	case model.LineRemove:
		content = deletedLineStyle.Render(truncate("-"+rl.Content, maxContent))
	default:
		content = renderHighlightedContent(rl, " ")
		if maxContent > 0 && lipgloss.Width(content) > maxContent {
			content = contextLineStyle.Render(truncate(" "+rl.Content, maxContent))
		}
	}

	return lineNums + " " + content
}

// styleLineSplit renders a line for split (side-by-side) view.
func styleLineSplit(rl renderedLine, halfWidth int) (left, right string) {
	if rl.IsHunk {
		return hunkHeaderStyle.Width(halfWidth).Render(truncate(rl.Content, halfWidth)), ""
	}

	maxContent := halfWidth - 7
	content := truncate(rl.Content, maxContent)

	switch rl.Type {
	case model.LineRemove:
		left = lineNumberStyle.Render(lineNumber(rl.OldNum)) + " " + deletedLineStyle.Render("-"+content)
		right = strings.Repeat(" ", halfWidth)
	case model.LineAdd:
		left = strings.Repeat(" ", halfWidth)
		right = lineNumberStyle.Render(lineNumber(rl.NewNum)) + " " + addedLineStyle.Render("+"+content)
	default:
		left = lineNumberStyle.Render(lineNumber(rl.OldNum)) + " " + contextLineStyle.Render(" "+content)
		right = lineNumberStyle.Render(lineNumber(rl.NewNum)) + " " + contextLineStyle.Render(" "+content)
	}
	return left, right
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}
