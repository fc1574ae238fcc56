package analysis

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sprite-ai/prsift/internal/model"
)

// Hit is a successful pattern test. Lines is empty for file-only patterns.
type Hit struct {
	Lines []model.LineRef
}

// Match tests p against f and returns nil when p does not apply. Only added
// and removed lines are scanned; context lines never count.
func (p Pattern) Match(f model.FileDiff) *Hit {
	if p.MatchFile == nil && p.MatchLine == nil {
		return nil
	}
	if len(p.Statuses) > 0 && !slices.Contains(p.Statuses, f.Status) {
		return nil
	}
	if p.MatchFile != nil && !p.MatchFile.MatchString(f.Path) {
		return nil
	}

	hit := &Hit{}
	if p.MatchLine != nil {
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				if !p.Lines.includes(l.Type) || !p.MatchLine.MatchString(l.Content) {
					continue
				}
				hit.Lines = append(hit.Lines, model.LineRef{File: f.Path, Line: lineNumber(l)})
			}
		}
		if len(hit.Lines) == 0 {
			return nil
		}
		if p.Exclusive && !p.onlyMatchingChanges(f) {
			return nil
		}
	}

	if p.Guard != nil && !p.Guard.allows(f) {
		return nil
	}
	return hit
}

func (p Pattern) onlyMatchingChanges(f model.FileDiff) bool {
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if l.Type == model.LineContext || strings.TrimSpace(l.Content) == "" {
				continue
			}
			if !p.MatchLine.MatchString(l.Content) {
				return false
			}
		}
	}
	return true
}

func lineNumber(l model.Line) int {
	if l.Type == model.LineRemove && l.OldLineNum != nil {
		return *l.OldLineNum
	}
	if l.NewLineNum != nil {
		return *l.NewLineNum
	}
	return 0
}

var number = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// allows pairs each run of removed lines with the added lines that follow
// and checks every numeric value that changed position-for-position.
func (g *NumericGuard) allows(f model.FileDiff) bool {
	for _, h := range f.Hunks {
		var removed, added []string
		for _, l := range h.Lines {
			switch l.Type {
			case model.LineRemove:
				if len(added) > 0 {
					if !g.pairsWithin(removed, added) {
						return false
					}
					removed, added = nil, nil
				}
				removed = append(removed, l.Content)
			case model.LineAdd:
				added = append(added, l.Content)
			default:
				if !g.pairsWithin(removed, added) {
					return false
				}
				removed, added = nil, nil
			}
		}
		if !g.pairsWithin(removed, added) {
			return false
		}
	}
	return true
}

func (g *NumericGuard) pairsWithin(removed, added []string) bool {
	for i := range min(len(removed), len(added)) {
		before := number.FindAllString(removed[i], -1)
		after := number.FindAllString(added[i], -1)
		for j := range min(len(before), len(after)) {
			o, err1 := strconv.ParseFloat(before[j], 64)
			n, err2 := strconv.ParseFloat(after[j], 64)
			if err1 != nil || err2 != nil {
				continue
			}
			if !g.within(o, n) {
				return false
			}
		}
	}
	return true
}

func (g *NumericGuard) within(old, new float64) bool {
	delta := math.Abs(new - old)
	if delta <= g.AbsoluteDelta {
		return true
	}
	return old != 0 && delta/math.Abs(old)*100 <= g.RelativePercent
}

// MatchResult groups files by the pattern that claimed them.
type MatchResult struct {
	Matched   map[string]*model.HeuristicMatch `json:"matched"`
	Order     []string                         `json:"order"`
	Unmatched []model.FileDiff                 `json:"unmatched"`
}

// Matches returns the heuristic matches in the order patterns first fired.
func (r *MatchResult) Matches() []model.HeuristicMatch {
	out := make([]model.HeuristicMatch, 0, len(r.Order))
	for _, id := range r.Order {
		out = append(out, *r.Matched[id])
	}
	return out
}

// MatchPatterns assigns each file to the first pattern in patterns that
// matches it. patterns must already be in precedence order.
func MatchPatterns(files []model.FileDiff, patterns []Pattern) *MatchResult {
	res := &MatchResult{
		Matched:   make(map[string]*model.HeuristicMatch),
		Order:     []string{},
		Unmatched: []model.FileDiff{},
	}

	for _, f := range files {
		claimed := false
		for _, p := range patterns {
			hit := p.Match(f)
			if hit == nil {
				continue
			}

			m, ok := res.Matched[p.ID]
			if !ok {
				m = &model.HeuristicMatch{
					PatternID:           p.ID,
					Confidence:          p.Confidence,
					Priority:            p.Priority,
					MatchedLines:        []model.LineRef{},
					FirstOccurrenceFile: f.Path,
				}
				res.Matched[p.ID] = m
				res.Order = append(res.Order, p.ID)
			}
			m.MatchedFiles = append(m.MatchedFiles, f.Path)
			m.MatchedLines = append(m.MatchedLines, hit.Lines...)
			claimed = true
			break
		}
		if !claimed {
			res.Unmatched = append(res.Unmatched, f)
		}
	}
	return res
}
