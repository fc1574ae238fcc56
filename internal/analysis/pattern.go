// Package analysis holds the pattern catalog and the matcher that assigns
// each changed file to at most one pattern.
package analysis

import (
	"regexp"

	"github.com/sprite-ai/prsift/internal/model"
)

// LineScope selects which changed lines a line regex is tested against.
type LineScope int

const (
	ScopeChanged LineScope = iota // added and removed lines
	ScopeAdded
	ScopeRemoved
)

func (s LineScope) String() string {
	switch s {
	case ScopeAdded:
		return "added"
	case ScopeRemoved:
		return "removed"
	default:
		return "changed"
	}
}

func (s LineScope) includes(t model.LineType) bool {
	switch s {
	case ScopeAdded:
		return t == model.LineAdd
	case ScopeRemoved:
		return t == model.LineRemove
	default:
		return t == model.LineAdd || t == model.LineRemove
	}
}

// Origin records where a pattern came from.
type Origin string

const (
	OriginBuiltin Origin = "builtin"
	OriginCustom  Origin = "custom"
)

// NumericGuard limits a pattern to files whose numeric values moved by no
// more than the given amounts between paired removed/added lines.
type NumericGuard struct {
	RelativePercent float64
	AbsoluteDelta   float64
}

// Pattern is one matching rule. At least one of MatchFile and MatchLine is
// set; when both are, both must hold.
type Pattern struct {
	ID          string
	Confidence  int
	Category    model.Category
	Description string
	Priority    model.Priority
	MatchFile   *regexp.Regexp
	MatchLine   *regexp.Regexp
	Lines       LineScope
	Statuses    []model.FileStatus
	Guard       *NumericGuard
	// Exclusive rejects files with any non-blank added or removed line
	// that MatchLine does not accept.
	Exclusive bool
	Origin    Origin
}
