package analysis

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/model"
	"github.com/sprite-ai/prsift/internal/scoring"
)

// AlwaysReviewPathConfidence is assigned to rules synthesized from
// always_review_paths.
const AlwaysReviewPathConfidence = 5

func categoryFor(confidence int) model.Category {
	return scoring.CategorizeConfidence(float64(confidence))
}

// SortByPrecedence returns the candidate patterns for a project: tiers in
// order always_review, high, medium, and within each tier the project's own
// patterns ahead of the built-ins. Built-in numeric guards take the
// project's query-count thresholds.
func SortByPrecedence(cfg config.Config) ([]Pattern, error) {
	custom, err := customPatterns(cfg)
	if err != nil {
		return nil, err
	}

	guard := &NumericGuard{
		RelativePercent: cfg.QueryCountThresholds.RelativePercent,
		AbsoluteDelta:   cfg.QueryCountThresholds.AbsoluteDelta,
	}
	all := custom
	for _, p := range Builtins() {
		if p.Guard != nil {
			p.Guard = guard
		}
		all = append(all, p)
	}

	slices.SortStableFunc(all, func(a, b Pattern) int {
		if d := a.Priority.Rank() - b.Priority.Rank(); d != 0 {
			return d
		}
		return originRank(a.Origin) - originRank(b.Origin)
	})
	return all, nil
}

func originRank(o Origin) int {
	if o == OriginBuiltin {
		return 1
	}
	return 0
}

func customPatterns(cfg config.Config) ([]Pattern, error) {
	var out []Pattern

	for i, glob := range cfg.AlwaysReviewPaths {
		re, err := globRegexp(glob)
		if err != nil {
			return nil, invalidPattern(fmt.Sprintf("always_review_paths[%d]", i), err)
		}
		out = append(out, Pattern{
			ID:          fmt.Sprintf("always-review-path-%d", i+1),
			Confidence:  AlwaysReviewPathConfidence,
			Category:    model.ReviewRequired,
			Description: "Project always-review path " + glob,
			Priority:    model.PriorityAlwaysReview,
			MatchFile:   re,
			Origin:      OriginCustom,
		})
	}

	for _, ps := range cfg.CustomPatterns {
		p := Pattern{
			ID:          ps.ID,
			Confidence:  ps.Confidence,
			Category:    categoryFor(ps.Confidence),
			Description: ps.Description,
			Priority:    model.Priority(ps.Priority),
			Origin:      OriginCustom,
		}
		if ps.Category != "" {
			c, err := model.ParseCategory(ps.Category)
			if err != nil {
				return nil, invalidPattern(ps.ID, err)
			}
			p.Category = c
		}
		switch ps.Lines {
		case "added":
			p.Lines = ScopeAdded
		case "removed":
			p.Lines = ScopeRemoved
		}

		var err error
		if ps.MatchFile != "" {
			if p.MatchFile, err = regexp.Compile(ps.MatchFile); err != nil {
				return nil, invalidPattern(ps.ID, err)
			}
		}
		if ps.MatchLine != "" {
			if p.MatchLine, err = regexp.Compile(ps.MatchLine); err != nil {
				return nil, invalidPattern(ps.ID, err)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func invalidPattern(id string, err error) error {
	return apperr.New(apperr.ConfigInvalid, fmt.Sprintf("invalid pattern %s", id), apperr.Wrap(err))
}

// globRegexp compiles a path glob. "**" crosses directories, "*" and "?"
// do not. A pattern without wildcards also matches everything beneath it.
func globRegexp(glob string) (*regexp.Regexp, error) {
	glob = strings.TrimPrefix(glob, "./")
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				i++
				if i+1 < len(glob) && glob[i+1] == '/' {
					b.WriteString("(.*/)?")
					i++
				} else {
					b.WriteString(".*")
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	switch {
	case strings.HasSuffix(glob, "/"):
		b.WriteString(".*")
	case !strings.ContainsAny(glob, "*?"):
		b.WriteString("(/.*)?")
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
