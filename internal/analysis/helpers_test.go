package analysis

import (
	"github.com/sprite-ai/prsift/internal/model"
)

// fileDiff builds a single-hunk FileDiff from prefixed lines ("+", "-", " ").
func fileDiff(path string, status model.FileStatus, lines ...string) model.FileDiff {
	f := model.FileDiff{Path: path, Status: status}
	h := model.Hunk{OldStart: 1, NewStart: 1}
	oldNum, newNum := 1, 1
	for _, raw := range lines {
		content := raw[1:]
		switch raw[0] {
		case '+':
			n := newNum
			h.Lines = append(h.Lines, model.Line{Type: model.LineAdd, Content: content, NewLineNum: &n})
			newNum++
			f.Additions++
			h.NewCount++
		case '-':
			o := oldNum
			h.Lines = append(h.Lines, model.Line{Type: model.LineRemove, Content: content, OldLineNum: &o})
			oldNum++
			f.Deletions++
			h.OldCount++
		default:
			o, n := oldNum, newNum
			h.Lines = append(h.Lines, model.Line{Type: model.LineContext, Content: content, OldLineNum: &o, NewLineNum: &n})
			oldNum++
			newNum++
			h.OldCount++
			h.NewCount++
		}
	}
	if len(h.Lines) > 0 {
		f.Hunks = []model.Hunk{h}
	}
	return f
}
