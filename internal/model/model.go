// Package model defines the core data types shared across prsift.
package model

import (
	"fmt"
	"strings"
)

// PRFile is the per-file line count the hosting provider reports.
type PRFile struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// PRMetadata describes a pull request at a specific head commit.
type PRMetadata struct {
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Body        *string  `json:"body"`
	HeadRefOid  string   `json:"headRefOid"`
	BaseRefName string   `json:"baseRefName"`
	Additions   int      `json:"additions"`
	Deletions   int      `json:"deletions"`
	Files       []PRFile `json:"files"`
}

// FileStatus is how a file changed in the diff.
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusModified FileStatus = "modified"
	StatusDeleted  FileStatus = "deleted"
	StatusRenamed  FileStatus = "renamed"
)

// LineType is the kind of a diff line.
type LineType string

const (
	LineContext LineType = "context"
	LineAdd     LineType = "add"
	LineRemove  LineType = "remove"
)

// Prefix returns the unified diff marker for the line type.
func (t LineType) Prefix() string {
	switch t {
	case LineAdd:
		return "+"
	case LineRemove:
		return "-"
	default:
		return " "
	}
}

// Line is a single diff line. Added lines have no old number, removed lines
// no new number.
type Line struct {
	Type       LineType `json:"type"`
	Content    string   `json:"content"`
	OldLineNum *int     `json:"oldLineNum"`
	NewLineNum *int     `json:"newLineNum"`
}

// Changed reports whether the line is an addition or removal.
func (l Line) Changed() bool {
	return l.Type == LineAdd || l.Type == LineRemove
}

// Hunk is a contiguous block of changes.
type Hunk struct {
	OldStart int    `json:"oldStart"`
	OldCount int    `json:"oldCount"`
	NewStart int    `json:"newStart"`
	NewCount int    `json:"newCount"`
	Header   string `json:"header,omitempty"`
	Lines    []Line `json:"lines"`
}

// Range returns the "@@ -a,b +c,d @@" header line.
func (h Hunk) Range() string {
	s := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	if h.Header != "" {
		s += " " + h.Header
	}
	return s
}

// FileDiff is the parsed change to one file.
type FileDiff struct {
	Path      string     `json:"path"`
	OldPath   *string    `json:"oldPath"`
	Status    FileStatus `json:"status"`
	Binary    bool       `json:"binary,omitempty"`
	Hunks     []Hunk     `json:"hunks"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// Name returns the display name for the file.
func (f FileDiff) Name() string {
	if f.Status == StatusRenamed && f.OldPath != nil {
		return fmt.Sprintf("%s → %s", *f.OldPath, f.Path)
	}
	return f.Path
}

// ChangedLines returns every added or removed line across hunks.
func (f FileDiff) ChangedLines() []Line {
	var out []Line
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if l.Changed() {
				out = append(out, l)
			}
		}
	}
	return out
}

// Priority orders patterns into precedence tiers.
type Priority string

const (
	PriorityAlwaysReview Priority = "always_review"
	PriorityHigh         Priority = "high"
	PriorityMedium       Priority = "medium"
)

// Rank returns the tier's position; lower ranks are tried first.
func (p Priority) Rank() int {
	switch p {
	case PriorityAlwaysReview:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Valid reports whether p is one of the known tiers.
func (p Priority) Valid() bool {
	return p.Rank() < 3
}

// Category is the final triage bucket for a file.
type Category int

const (
	ReviewRequired Category = iota
	LikelyReview
	Uncertain
	LikelySkip
	SafeToSkip
)

// Categories lists buckets from most to least attention needed.
var Categories = []Category{ReviewRequired, LikelyReview, Uncertain, LikelySkip, SafeToSkip}

func (c Category) String() string {
	switch c {
	case ReviewRequired:
		return "REVIEW_REQUIRED"
	case LikelyReview:
		return "LIKELY_REVIEW"
	case Uncertain:
		return "UNCERTAIN"
	case LikelySkip:
		return "LIKELY_SKIP"
	case SafeToSkip:
		return "SAFE_TO_SKIP"
	default:
		return "unknown"
	}
}

// Label is the human heading for the category.
func (c Category) Label() string {
	switch c {
	case ReviewRequired:
		return "Review Required"
	case LikelyReview:
		return "Likely Review"
	case Uncertain:
		return "Uncertain"
	case LikelySkip:
		return "Likely Skip"
	case SafeToSkip:
		return "Safe to Skip"
	default:
		return "Unknown"
	}
}

// ParseCategory is the inverse of String.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// LineRef points at a line in a file. Line is the new-side number for
// additions and the old-side number for removals.
type LineRef struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// HeuristicMatch aggregates all files a single pattern claimed.
type HeuristicMatch struct {
	PatternID           string    `json:"patternId"`
	Confidence          int       `json:"confidence"`
	Priority            Priority  `json:"priority"`
	MatchedFiles        []string  `json:"matchedFiles"`
	MatchedLines        []LineRef `json:"matchedLines"`
	FirstOccurrenceFile string    `json:"firstOccurrenceFile"`
}

// Covers reports whether path is among the matched files.
func (m *HeuristicMatch) Covers(path string) bool {
	for _, f := range m.MatchedFiles {
		if f == path {
			return true
		}
	}
	return false
}

const (
	// AISource marks matches produced by the AI bridge.
	AISource = "ai"
	// UnknownPatternID is used when the model names no pattern.
	UnknownPatternID = "ai-unknown"
)

// AIMatch is the model's judgement for one file.
type AIMatch struct {
	File        string  `json:"file"`
	PatternID   string  `json:"patternId"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	Source      string  `json:"source"`
}

// ScoredChange is a file with its final score and category.
type ScoredChange struct {
	File             FileDiff         `json:"file"`
	HeuristicMatches []HeuristicMatch `json:"heuristicMatches"`
	AIAnalysis       *AIMatch         `json:"aiAnalysis"`
	FinalCategory    Category         `json:"finalCategory"`
	Explanation      string           `json:"explanation"`
	ConfidenceScore  float64          `json:"confidenceScore"`
}

// PatternID returns the pattern used to group the change: the first
// heuristic match, else the AI pattern, else "".
func (s ScoredChange) PatternID() string {
	if len(s.HeuristicMatches) > 0 {
		return s.HeuristicMatches[0].PatternID
	}
	if s.AIAnalysis != nil {
		return s.AIAnalysis.PatternID
	}
	return ""
}
