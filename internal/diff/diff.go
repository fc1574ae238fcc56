// Package diff parses unified diffs into the model's file/hunk/line form.
package diff

import (
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/model"
)

// Parse reads a unified diff string and returns one FileDiff per file, in
// diff order. Binary files carry no hunks.
func Parse(raw string) ([]model.FileDiff, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, apperr.New(apperr.DiffParseError, "parsing diff", apperr.Wrap(err))
	}

	files := make([]model.FileDiff, 0, len(parsed))
	for _, f := range parsed {
		files = append(files, convertFile(f))
	}
	return files, nil
}

func convertFile(f *gitdiff.File) model.FileDiff {
	df := model.FileDiff{
		Path:   f.NewName,
		Status: model.StatusModified,
		Binary: f.IsBinary,
		Hunks:  []model.Hunk{},
	}

	switch {
	case f.IsNew:
		df.Status = model.StatusAdded
	case f.IsDelete:
		df.Status = model.StatusDeleted
		df.Path = f.OldName
	case f.IsRename:
		df.Status = model.StatusRenamed
		old := f.OldName
		df.OldPath = &old
	}
	if df.Path == "" {
		df.Path = f.OldName
	}

	for _, frag := range f.TextFragments {
		h := convertFragment(frag)
		for _, l := range h.Lines {
			switch l.Type {
			case model.LineAdd:
				df.Additions++
			case model.LineRemove:
				df.Deletions++
			}
		}
		df.Hunks = append(df.Hunks, h)
	}
	return df
}

func convertFragment(frag *gitdiff.TextFragment) model.Hunk {
	h := model.Hunk{
		OldStart: int(frag.OldPosition),
		OldCount: int(frag.OldLines),
		NewStart: int(frag.NewPosition),
		NewCount: int(frag.NewLines),
		Header:   strings.TrimSpace(frag.Comment),
		Lines:    make([]model.Line, 0, len(frag.Lines)),
	}

	oldNum, newNum := h.OldStart, h.NewStart
	for _, line := range frag.Lines {
		content := strings.TrimSuffix(line.Line, "\n")
		switch line.Op {
		case gitdiff.OpAdd:
			h.Lines = append(h.Lines, model.Line{Type: model.LineAdd, Content: content, NewLineNum: intPtr(newNum)})
			newNum++
		case gitdiff.OpDelete:
			h.Lines = append(h.Lines, model.Line{Type: model.LineRemove, Content: content, OldLineNum: intPtr(oldNum)})
			oldNum++
		default:
			h.Lines = append(h.Lines, model.Line{Type: model.LineContext, Content: content,
				OldLineNum: intPtr(oldNum), NewLineNum: intPtr(newNum)})
			oldNum++
			newNum++
		}
	}
	return h
}

func intPtr(n int) *int { return &n }

// Stats returns aggregate statistics.
func Stats(files []model.FileDiff) (count, added, deleted int) {
	count = len(files)
	for _, f := range files {
		added += f.Additions
		deleted += f.Deletions
	}
	return
}

// FormatHunks writes hunk headers and prefixed lines.
func FormatHunks(b *strings.Builder, hunks []model.Hunk) {
	for _, h := range hunks {
		b.WriteString(h.Range())
		b.WriteByte('\n')
		for _, l := range h.Lines {
			b.WriteString(l.Type.Prefix())
			b.WriteString(l.Content)
			b.WriteByte('\n')
		}
	}
}
