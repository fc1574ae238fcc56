// Package tui implements the Bubble Tea browser for scored PR results.
package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/prsift/internal/model"
	"github.com/sprite-ai/prsift/internal/scoring"
)

// Model is the top-level Bubble Tea model for browsing scored changes.
type Model struct {
	meta  model.PRMetadata
	files []model.ScoredChange

	width  int
	height int

	fileIndex int

	scrollOffset int
	viewHeight   int

	// Rendered lines for the current file
	lines []renderedLine

	splitView bool
	showHelp  bool
}

// New creates a model over scored changes. Files are shown lowest score
// first; ties keep their input order.
func New(meta model.PRMetadata, scored []model.ScoredChange) Model {
	files := slices.Clone(scored)
	slices.SortStableFunc(files, func(a, b model.ScoredChange) int {
		switch {
		case a.ConfidenceScore < b.ConfidenceScore:
			return -1
		case a.ConfidenceScore > b.ConfidenceScore:
			return 1
		}
		return 0
	})
	m := Model{meta: meta, files: files}
	m.updateLines()
	return m
}

func (m *Model) updateLines() {
	if len(m.files) == 0 {
		m.lines = nil
		return
	}
	m.lines = renderFile(m.files[m.fileIndex].File)
}

func (m *Model) selectFile(i int) {
	if i < 0 || i >= len(m.files) || i == m.fileIndex {
		return
	}
	m.fileIndex = i
	m.scrollOffset = 0
	m.updateLines()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewHeight = m.height - 4 // status bar + borders
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Down):
			if m.scrollOffset < len(m.lines)-1 {
				m.scrollOffset++
			}

		case key.Matches(msg, keys.Up):
			if m.scrollOffset > 0 {
				m.scrollOffset--
			}

		case key.Matches(msg, keys.NextFile):
			m.selectFile(m.fileIndex + 1)

		case key.Matches(msg, keys.PrevFile):
			m.selectFile(m.fileIndex - 1)

		case key.Matches(msg, keys.NextHunk):
			m.jumpToNextHunk()

		case key.Matches(msg, keys.PrevHunk):
			m.jumpToPrevHunk()

		case key.Matches(msg, keys.NextCategory):
			m.jumpToNextCategory()

		case key.Matches(msg, keys.Toggle):
			m.splitView = !m.splitView

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}
	}

	return m, nil
}

func (m *Model) jumpToNextHunk() {
	for i := m.scrollOffset + 1; i < len(m.lines); i++ {
		if m.lines[i].IsHunk {
			m.scrollOffset = i
			return
		}
	}
}

func (m *Model) jumpToPrevHunk() {
	for i := m.scrollOffset - 1; i >= 0; i-- {
		if m.lines[i].IsHunk {
			m.scrollOffset = i
			return
		}
	}
}

// jumpToNextCategory selects the first file of the next category present,
// wrapping to the top of the list after the last one.
func (m *Model) jumpToNextCategory() {
	if len(m.files) == 0 {
		return
	}
	current := m.files[m.fileIndex].FinalCategory
	for i := m.fileIndex + 1; i < len(m.files); i++ {
		if m.files[i].FinalCategory != current {
			m.selectFile(i)
			return
		}
	}
	if m.files[0].FinalCategory != current {
		m.selectFile(0)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	fileListWidth := m.fileListWidth()
	diffWidth := m.width - fileListWidth - 1

	fileList := m.renderFileList(fileListWidth, m.height-2)
	diffView := m.renderDiffView(diffWidth, m.height-2)

	main := lipgloss.JoinHorizontal(lipgloss.Top, fileList, " ", diffView)
	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m Model) fileListWidth() int {
	maxLen := 20
	for _, f := range m.files {
		maxLen = max(maxLen, len(f.File.Name()))
	}
	w := maxLen + 8 // padding + score
	w = min(w, m.width/3)
	return max(w, 20)
}

func (m Model) renderFileList(width, height int) string {
	var b strings.Builder

	maxName := width - 9
	for i, f := range m.files {
		name := f.File.Name()
		if maxName > 0 && len(name) > maxName {
			name = "…" + name[len(name)-maxName+1:]
		}
		line := fmt.Sprintf("%-*s %3.0f", maxName, name, f.ConfidenceScore)

		style := categoryStyle(f.FinalCategory)
		if i == m.fileIndex {
			style = fileItemSelectedStyle.Foreground(categoryColors[f.FinalCategory])
		}

		b.WriteString(style.Width(width - 4).Render(line))
		if i < len(m.files)-1 {
			b.WriteByte('\n')
		}
	}

	return fileListStyle.Width(width).Height(height - 2).Render(b.String())
}

func (m Model) renderDiffView(width, height int) string {
	innerHeight := height - 2
	if len(m.files) == 0 {
		return diffViewStyle.Width(width).Height(innerHeight).Render("No changes")
	}

	f := m.files[m.fileIndex]
	innerWidth := width - 4

	header := fileHeaderStyle.Render(f.File.Name()) + "  " +
		categoryStyle(f.FinalCategory).Render(fmt.Sprintf("%s (%.0f)", f.FinalCategory.Label(), f.ConfidenceScore))
	explanation := explanationStyle.Render(truncate(f.Explanation, innerWidth))

	visibleLines := max(innerHeight-3, 1)

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	b.WriteString(explanation)
	b.WriteByte('\n')

	if m.splitView {
		m.renderSplitDiff(&b, innerWidth, visibleLines)
	} else {
		m.renderUnifiedDiff(&b, innerWidth, visibleLines)
	}

	return diffViewStyle.Width(width).Height(innerHeight).Render(b.String())
}

func (m Model) renderUnifiedDiff(b *strings.Builder, width, visibleLines int) {
	end := min(m.scrollOffset+visibleLines, len(m.lines))
	for i := m.scrollOffset; i < end; i++ {
		b.WriteString(styleLine(m.lines[i], width))
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
}

func (m Model) renderSplitDiff(b *strings.Builder, width, visibleLines int) {
	halfWidth := (width - 3) / 2

	end := min(m.scrollOffset+visibleLines, len(m.lines))
	for i := m.scrollOffset; i < end; i++ {
		left, right := styleLineSplit(m.lines[i], halfWidth)
		b.WriteString(left)
		b.WriteString(" │ ")
		b.WriteString(right)
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
}

func (m Model) renderStatusBar() string {
	summary := scoring.Summarize(m.files)

	left := fmt.Sprintf(" PR #%d  File %d/%d", m.meta.Number, m.fileIndex+1, summary.Files)
	if len(m.lines) > 0 {
		left += fmt.Sprintf("  Line %d/%d", m.scrollOffset+1, len(m.lines))
	}

	var counts []string
	for _, c := range model.Categories {
		if n := summary.Counts[c]; n > 0 {
			counts = append(counts, categoryStyle(c).Background(colorBgLight).Render(fmt.Sprintf("%d", n)))
		}
	}

	mode := "unified"
	if m.splitView {
		mode = "split"
	}
	right := fmt.Sprintf("%s  +%d -%d  %s  ? help ", strings.Join(counts, " "), summary.Additions, summary.Deletions, mode)

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(fileHeaderStyle.Render("prsift: Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, k := range helpItems() {
		h := k.Help()
		fmt.Fprintf(&b, "  %s  %s\n", helpKeyStyle.Width(12).Render(h.Key), h.Desc)
	}

	b.WriteString("\n")
	b.WriteString(helpBarStyle.Render("Press ? to close help"))
	return b.String()
}

// Run starts the browser for one PR's scored changes.
func Run(meta model.PRMetadata, scored []model.ScoredChange) error {
	p := tea.NewProgram(New(meta, scored), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
