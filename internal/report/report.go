// Package report renders scored changes as a markdown review guide.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/diff"
	"github.com/sprite-ai/prsift/internal/model"
	"github.com/sprite-ai/prsift/internal/scoring"
)

const (
	// GroupDisplayLimit is the largest skip group listed in full.
	GroupDisplayLimit = 3
	// ContextLines caps the lines quoted for likely-review files.
	ContextLines = 6
	// Unclassified groups skip-tier files with no pattern.
	Unclassified = "unclassified"
)

// Input is everything a report needs.
type Input struct {
	Meta   model.PRMetadata
	Scored []model.ScoredChange
	Config config.Config
	// Command is the CLI name used in suggested bless commands.
	Command string
	RunID   string
}

// Generate returns the markdown report.
func Generate(in Input) string {
	var b strings.Builder
	_ = Write(&b, in)
	return b.String()
}

// Write renders the report to w.
func Write(w io.Writer, in Input) error {
	if in.Command == "" {
		in.Command = "prsift"
	}
	byCat := make(map[model.Category][]model.ScoredChange)
	for _, s := range in.Scored {
		byCat[s.FinalCategory] = append(byCat[s.FinalCategory], s)
	}
	for _, changes := range byCat {
		sortByScore(changes)
	}

	fmt.Fprintf(w, "# PR #%d: %s\n\n", in.Meta.Number, escape(in.Meta.Title))
	writeSummary(w, in.Scored)
	writeReviewRequired(w, byCat[model.ReviewRequired])
	writeLikelyReview(w, byCat[model.LikelyReview])
	writeUncertain(w, byCat[model.Uncertain])
	writeSkip(w, append(append([]model.ScoredChange{}, byCat[model.LikelySkip]...), byCat[model.SafeToSkip]...))
	writeDiscovered(w, in.Scored, in.Config, in.Command)
	writeDetails(w, in.Scored)

	fmt.Fprintf(w, "---\n\n")
	if in.RunID != "" {
		fmt.Fprintf(w, "*Generated by %s, run %s*\n", in.Command, in.RunID)
	} else {
		fmt.Fprintf(w, "*Generated by %s*\n", in.Command)
	}
	return nil
}

func icon(c model.Category) string {
	switch c {
	case model.ReviewRequired:
		return ":red_circle:"
	case model.LikelyReview:
		return ":orange_circle:"
	case model.Uncertain:
		return ":yellow_circle:"
	case model.LikelySkip:
		return ":large_blue_circle:"
	default:
		return ":white_check_mark:"
	}
}

func writeSummary(w io.Writer, scored []model.ScoredChange) {
	sum := scoring.Summarize(scored)

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Category | Files |\n")
	fmt.Fprintf(w, "|----------|-------|\n")
	for _, c := range model.Categories {
		fmt.Fprintf(w, "| %s %s | %d |\n", icon(c), c.Label(), sum.Counts[c])
	}
	fmt.Fprintf(w, "| **Total** | **%d** |\n\n", sum.Files)
	fmt.Fprintf(w, "**Changes:** +%d / -%d across %d file(s)\n\n", sum.Additions, sum.Deletions, sum.Files)
}

func heading(w io.Writer, c model.Category, n int) {
	fmt.Fprintf(w, "## %s %s (%d)\n\n", icon(c), c.Label(), n)
}

func none(w io.Writer) {
	fmt.Fprintf(w, "_None._\n\n")
}

// sortByScore orders changes lowest score first; ties keep their order.
func sortByScore(changes []model.ScoredChange) {
	slices.SortStableFunc(changes, func(a, b model.ScoredChange) int {
		return cmp.Compare(a.ConfidenceScore, b.ConfidenceScore)
	})
}

func writeReviewRequired(w io.Writer, changes []model.ScoredChange) {
	heading(w, model.ReviewRequired, len(changes))
	if len(changes) == 0 {
		none(w)
		return
	}
	for _, s := range changes {
		fmt.Fprintf(w, "### %s (confidence %s)\n\n", code(s.File.Path), score(s.ConfidenceScore))
		fmt.Fprintf(w, "%s\n\n", escape(s.Explanation))

		switch {
		case s.File.Binary:
			fmt.Fprintf(w, "_Binary file, no diff shown._\n\n")
		case len(s.File.Hunks) == 0:
			fmt.Fprintf(w, "_No hunks (%s)._\n\n", s.File.Status)
		default:
			var body strings.Builder
			diff.FormatHunks(&body, s.File.Hunks)
			writeFence(w, "diff", body.String())
		}
	}
}

func writeLikelyReview(w io.Writer, changes []model.ScoredChange) {
	heading(w, model.LikelyReview, len(changes))
	if len(changes) == 0 {
		none(w)
		return
	}
	for _, s := range changes {
		fmt.Fprintf(w, "### %s (confidence %s)\n\n", code(s.File.Path), score(s.ConfidenceScore))
		fmt.Fprintf(w, "%s\n\n", escape(s.Explanation))

		lines := s.File.ChangedLines()
		if len(lines) == 0 {
			continue
		}
		shown := lines[:min(len(lines), ContextLines)]
		var body strings.Builder
		for _, l := range shown {
			body.WriteString(l.Type.Prefix())
			body.WriteString(" ")
			body.WriteString(l.Content)
			body.WriteString("\n")
		}
		writeFence(w, diff.Language(s.File.Path), body.String())
		if rest := len(lines) - len(shown); rest > 0 {
			fmt.Fprintf(w, "_+%d more changed line(s)_\n\n", rest)
		}
	}
}

func writeUncertain(w io.Writer, changes []model.ScoredChange) {
	heading(w, model.Uncertain, len(changes))
	if len(changes) == 0 {
		none(w)
		return
	}
	for _, s := range changes {
		fmt.Fprintf(w, "- %s (%s): %s\n", code(s.File.Path), score(s.ConfidenceScore), escape(s.Explanation))
	}
	fmt.Fprintln(w)
}

type group struct {
	id      string
	changes []model.ScoredChange
}

func groupByPattern(changes []model.ScoredChange) []group {
	var groups []group
	index := map[string]int{}
	for _, s := range changes {
		id := s.PatternID()
		if id == "" {
			id = Unclassified
		}
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, group{id: id})
		}
		groups[i].changes = append(groups[i].changes, s)
	}
	return groups
}

func writeSkip(w io.Writer, changes []model.ScoredChange) {
	fmt.Fprintf(w, "## %s Likely Skip / Safe to Skip (%d)\n\n", icon(model.SafeToSkip), len(changes))
	if len(changes) == 0 {
		none(w)
		return
	}
	for _, g := range groupByPattern(changes) {
		fmt.Fprintf(w, "### %s (%d file(s))\n\n", code(g.id), len(g.changes))
		shown := g.changes
		if len(shown) > GroupDisplayLimit {
			shown = shown[:1]
		}
		for _, s := range shown {
			fmt.Fprintf(w, "- %s (%s, %s)\n", code(s.File.Path), score(s.ConfidenceScore), s.FinalCategory.Label())
		}
		if rest := len(g.changes) - len(shown); rest > 0 {
			fmt.Fprintf(w, "- _+%d more_\n", rest)
		}
		fmt.Fprintln(w)
	}
}

type discovered struct {
	id         string
	source     string
	confidence float64
	files      map[string]bool
}

func writeDiscovered(w io.Writer, scored []model.ScoredChange, cfg config.Config, command string) {
	var found []*discovered
	index := map[string]*discovered{}
	note := func(id, source string, conf float64, file string) {
		if id == "" || id == model.UnknownPatternID || cfg.IsBlessed(id) {
			return
		}
		d, ok := index[id]
		if !ok {
			d = &discovered{id: id, source: source, confidence: conf, files: map[string]bool{}}
			index[id] = d
			found = append(found, d)
		}
		d.confidence = min(d.confidence, conf)
		d.files[file] = true
	}
	for _, s := range scored {
		for _, h := range s.HeuristicMatches {
			note(h.PatternID, "heuristic", float64(h.Confidence), s.File.Path)
		}
		if s.AIAnalysis != nil {
			note(s.AIAnalysis.PatternID, model.AISource, s.AIAnalysis.Confidence, s.File.Path)
		}
	}

	fmt.Fprintf(w, "## :sparkles: Discovered Patterns (%d)\n\n", len(found))
	if len(found) == 0 {
		fmt.Fprintf(w, "_No unblessed patterns._\n\n")
		return
	}
	fmt.Fprintf(w, "| Pattern | Source | Confidence | Files | Bless with |\n")
	fmt.Fprintf(w, "|---------|--------|------------|-------|------------|\n")
	for _, d := range found {
		bless := cell(code(command + " bless " + d.id))
		if v := config.ValidatePatternID(d.id); !v.Valid {
			bless = "_not blessable: " + escape(v.Error) + "_"
		}
		fmt.Fprintf(w, "| %s | %s | %s | %d | %s |\n",
			cell(code(d.id)), d.source, score(d.confidence), len(d.files), bless)
	}
	fmt.Fprintln(w)
}

func writeDetails(w io.Writer, scored []model.ScoredChange) {
	type row struct {
		id      string
		sources map[string]bool
		files   []string
	}
	var rows []*row
	index := map[string]*row{}
	add := func(id, source, file string) {
		r, ok := index[id]
		if !ok {
			r = &row{id: id, sources: map[string]bool{}}
			index[id] = r
			rows = append(rows, r)
		}
		r.sources[source] = true
		r.files = append(r.files, file)
	}
	for _, s := range scored {
		for _, h := range s.HeuristicMatches {
			add(h.PatternID, "heuristic", s.File.Path)
		}
		if s.AIAnalysis != nil {
			add(s.AIAnalysis.PatternID, model.AISource, s.File.Path)
		}
	}

	fmt.Fprintf(w, "## Pattern Match Details\n\n")
	if len(rows) == 0 {
		none(w)
		return
	}
	fmt.Fprintf(w, "| Pattern | Source | Files |\n")
	fmt.Fprintf(w, "|---------|--------|-------|\n")
	for _, r := range rows {
		var sources []string
		for _, src := range []string{"heuristic", model.AISource} {
			if r.sources[src] {
				sources = append(sources, src)
			}
		}
		files := make([]string, len(r.files))
		for i, f := range r.files {
			files[i] = code(f)
		}
		fmt.Fprintf(w, "| %s | %s | %s |\n", cell(code(r.id)), strings.Join(sources, ", "), cell(strings.Join(files, ", ")))
	}
	fmt.Fprintln(w)
}

func score(f float64) string {
	return fmt.Sprintf("%.0f", f)
}
