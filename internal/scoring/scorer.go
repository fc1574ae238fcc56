// Package scoring turns heuristic and AI signals into per-file confidence
// scores and triage categories.
package scoring

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/sprite-ai/prsift/internal/model"
)

// Band upper bounds, inclusive.
const (
	ThresholdReviewRequired = 20
	ThresholdLikelyReview   = 40
	ThresholdUncertain      = 60
	ThresholdLikelySkip     = 80
)

// NoSignalScore is used when nothing is known about a file.
const NoSignalScore = 50

// Weights blend heuristic and AI confidence when both exist. They need not
// sum to 1.
type Weights struct {
	Heuristic float64 `json:"heuristicWeight"`
	AI        float64 `json:"aiWeight"`
}

// DefaultWeights favors the heuristics.
func DefaultWeights() Weights {
	return Weights{Heuristic: 0.6, AI: 0.4}
}

// Clamp limits score to [0,100].
func Clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

// CategorizeConfidence maps a score to its category. Scores are clamped and
// rounded to the nearest integer before banding.
func CategorizeConfidence(score float64) model.Category {
	s := math.Round(Clamp(score))
	switch {
	case s <= ThresholdReviewRequired:
		return model.ReviewRequired
	case s <= ThresholdLikelyReview:
		return model.LikelyReview
	case s <= ThresholdUncertain:
		return model.Uncertain
	case s <= ThresholdLikelySkip:
		return model.LikelySkip
	default:
		return model.SafeToSkip
	}
}

// ScoreFile computes the confidence that file is safe to skip. Only the
// heuristic matches covering file.Path and the first AI match for that path
// are considered.
func ScoreFile(file model.FileDiff, heuristic []model.HeuristicMatch, ai []model.AIMatch, w Weights) float64 {
	hs := heuristicFor(file.Path, heuristic)
	am := aiFor(file.Path, ai)

	switch {
	case len(hs) == 0 && am == nil:
		return NoSignalScore
	case am == nil:
		return float64(minConfidence(hs))
	case len(hs) == 0:
		return Clamp(am.Confidence)
	default:
		return Clamp(float64(minConfidence(hs))*w.Heuristic + am.Confidence*w.AI)
	}
}

func heuristicFor(path string, matches []model.HeuristicMatch) []model.HeuristicMatch {
	var out []model.HeuristicMatch
	for i := range matches {
		if matches[i].Covers(path) {
			out = append(out, matches[i])
		}
	}
	return out
}

func aiFor(path string, matches []model.AIMatch) *model.AIMatch {
	for i := range matches {
		if matches[i].File == path {
			m := matches[i]
			return &m
		}
	}
	return nil
}

func minConfidence(hs []model.HeuristicMatch) int {
	m := hs[0].Confidence
	for _, h := range hs[1:] {
		m = min(m, h.Confidence)
	}
	return m
}

// AggregateResults scores every file and returns the changes sorted by
// ascending confidence, so the files most needing attention come first.
// Files with equal scores keep their input order.
func AggregateResults(files []model.FileDiff, heuristic []model.HeuristicMatch, ai []model.AIMatch, w Weights) []model.ScoredChange {
	out := make([]model.ScoredChange, 0, len(files))
	for _, f := range files {
		hs := heuristicFor(f.Path, heuristic)
		am := aiFor(f.Path, ai)
		score := ScoreFile(f, hs, ai, w)

		out = append(out, model.ScoredChange{
			File:             f,
			HeuristicMatches: hs,
			AIAnalysis:       am,
			FinalCategory:    CategorizeConfidence(score),
			Explanation:      explain(hs, am),
			ConfidenceScore:  score,
		})
	}

	slices.SortStableFunc(out, func(a, b model.ScoredChange) int {
		switch {
		case a.ConfidenceScore < b.ConfidenceScore:
			return -1
		case a.ConfidenceScore > b.ConfidenceScore:
			return 1
		}
		return 0
	})
	return out
}

func explain(hs []model.HeuristicMatch, am *model.AIMatch) string {
	if am != nil && am.Explanation != "" {
		return am.Explanation
	}
	if len(hs) > 0 {
		ids := make([]string, len(hs))
		for i, h := range hs {
			ids[i] = h.PatternID
		}
		return fmt.Sprintf("Matched pattern(s): %s", strings.Join(ids, ", "))
	}
	if am != nil {
		return fmt.Sprintf("Classified by AI as %s", am.PatternID)
	}
	return "No pattern matched; manual review recommended"
}

// Summary counts scored changes per category.
type Summary struct {
	Counts    map[model.Category]int
	Files     int
	Additions int
	Deletions int
}

// Summarize tallies scored changes.
func Summarize(scored []model.ScoredChange) Summary {
	s := Summary{Counts: make(map[model.Category]int, len(model.Categories))}
	for _, c := range scored {
		s.Counts[c.FinalCategory]++
		s.Files++
		s.Additions += c.File.Additions
		s.Deletions += c.File.Deletions
	}
	return s
}
