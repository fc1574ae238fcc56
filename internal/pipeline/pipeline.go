// Package pipeline runs the two analysis phases. Phase 1 fetches a pull
// request, matches its files against the pattern catalog and caches the
// result, emitting a prompt for whatever the heuristics could not classify.
// Phase 2 reads the cache and an externally produced AI response and renders
// the report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/sprite-ai/prsift/internal/ai"
	"github.com/sprite-ai/prsift/internal/analysis"
	"github.com/sprite-ai/prsift/internal/cache"
	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/diff"
	"github.com/sprite-ai/prsift/internal/github"
	"github.com/sprite-ai/prsift/internal/logger"
	"github.com/sprite-ai/prsift/internal/model"
	"github.com/sprite-ai/prsift/internal/report"
	"github.com/sprite-ai/prsift/internal/scoring"
)

// Fetcher retrieves a pull request's metadata and raw unified diff.
type Fetcher interface {
	FetchPR(ctx context.Context, id github.Identifier) (model.PRMetadata, string, error)
}

// Runner holds the collaborators both phases need.
type Runner struct {
	Fetcher Fetcher
	Cache   *cache.Store
	Configs *config.Store
	// FS is used for the AI response file and report output.
	FS          afero.Fs
	Log         *slog.Logger
	Weights     scoring.Weights
	ProjectRoot string
	// Command is the CLI name shown in suggested commands.
	Command string
	// Refresh disables reuse of a cached diff for an unchanged head commit.
	Refresh         bool
	MaxLinesPerFile int
}

func (r *Runner) log() *slog.Logger {
	if r.Log == nil {
		return logger.Discard()
	}
	return r.Log
}

func (r *Runner) fs() afero.Fs {
	if r.FS == nil {
		return afero.NewOsFs()
	}
	return r.FS
}

func (r *Runner) weights() scoring.Weights {
	if r.Weights == (scoring.Weights{}) {
		return scoring.DefaultWeights()
	}
	return r.Weights
}

// Phase1Result is the outcome of phase 1.
type Phase1Result struct {
	Phase       int                   `json:"phase"`
	PRData      model.PRMetadata      `json:"prData"`
	ParsedDiff  []model.FileDiff      `json:"parsedDiff"`
	MatchResult *analysis.MatchResult `json:"matchResult"`
	AIPrompt    *string               `json:"aiPrompt"`
	// FromCache is true when the parsed diff came from the cache.
	FromCache bool `json:"fromCache"`
}

// Phase2Result is the outcome of phase 2.
type Phase2Result struct {
	Phase  int                  `json:"phase"`
	Report string               `json:"report"`
	Scored []model.ScoredChange `json:"scored"`
	RunID  string               `json:"runId"`
}

// Phase1 fetches and matches the pull request and caches the snapshot. When
// the cache already holds the same head commit its parsed diff is reused;
// matching always runs so config edits take effect.
func (r *Runner) Phase1(ctx context.Context, id github.Identifier) (*Phase1Result, error) {
	const op = "pipeline.Phase1"
	log := r.log().With(slog.String("op", op), slog.String("pr", id.String()))

	meta, raw, err := r.Fetcher.FetchPR(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &Phase1Result{Phase: 1, PRData: meta}
	if entry := r.cached(id, meta.HeadRefOid); entry != nil {
		log.Debug("reusing cached diff", slog.String("head", meta.HeadRefOid))
		res.ParsedDiff = entry.Diff
		res.FromCache = true
	} else {
		files, err := diff.Parse(raw)
		if err != nil {
			return nil, err
		}
		res.ParsedDiff = files
	}

	cfg, err := r.Configs.Load(r.ProjectRoot)
	if err != nil {
		return nil, err
	}
	patterns, err := analysis.SortByPrecedence(cfg)
	if err != nil {
		return nil, err
	}
	res.MatchResult = analysis.MatchPatterns(res.ParsedDiff, patterns)

	unmatched := make([]string, len(res.MatchResult.Unmatched))
	for i, f := range res.MatchResult.Unmatched {
		unmatched[i] = f.Path
	}
	snapshot := cache.NewAnalysis(res.MatchResult.Matched, res.MatchResult.Order, unmatched)
	if err := r.Cache.Save(id.Repo(), id.Number, meta, res.ParsedDiff, snapshot); err != nil {
		return nil, fmt.Errorf("saving cache: %w", err)
	}

	if len(res.MatchResult.Unmatched) > 0 {
		prompt := ai.GeneratePrompt(meta, res.MatchResult.Unmatched, ai.PromptOptions{
			Config:          cfg,
			MaxLinesPerFile: r.MaxLinesPerFile,
		})
		res.AIPrompt = &prompt
	}

	log.Info("phase 1 complete",
		slog.Int("files", len(res.ParsedDiff)),
		slog.Int("patterns", len(res.MatchResult.Order)),
		slog.Int("unmatched", len(unmatched)),
		slog.Bool("from_cache", res.FromCache),
	)
	return res, nil
}

func (r *Runner) cached(id github.Identifier, sha string) *cache.Entry {
	if r.Refresh || sha == "" {
		return nil
	}
	return r.Cache.Get(id.Repo(), id.Number, sha)
}

// Phase2 scores the cached pull request using the AI response at
// responsePath and renders the report.
func (r *Runner) Phase2(ctx context.Context, id github.Identifier, responsePath string) (*Phase2Result, error) {
	entry, err := r.Cache.Read(id.Repo(), id.Number)
	if err != nil {
		return nil, err
	}
	matches, err := ai.ReadResponseFile(r.fs(), responsePath)
	if err != nil {
		return nil, err
	}
	return r.finish(ctx, id, entry, matches)
}

// finish scores the entry against the given AI matches, stores the scored
// results and renders the report.
func (r *Runner) finish(_ context.Context, id github.Identifier, entry *cache.Entry, matches []model.AIMatch) (*Phase2Result, error) {
	const op = "pipeline.Phase2"
	log := r.log().With(slog.String("op", op), slog.String("pr", id.String()))

	cfg, err := r.Configs.Load(r.ProjectRoot)
	if err != nil {
		return nil, err
	}

	snapshot := entry.Analysis
	if snapshot == nil {
		log.Warn("cache entry has no analysis; rematching")
		patterns, err := analysis.SortByPrecedence(cfg)
		if err != nil {
			return nil, err
		}
		mr := analysis.MatchPatterns(entry.Diff, patterns)
		unmatched := make([]string, len(mr.Unmatched))
		for i, f := range mr.Unmatched {
			unmatched[i] = f.Path
		}
		snapshot = cache.NewAnalysis(mr.Matched, mr.Order, unmatched)
	}

	scored := scoring.AggregateResults(entry.Diff, snapshot.Matches(), matches, r.weights())
	snapshot.Scored = scored
	if err := r.Cache.UpdateAnalysis(id.Repo(), id.Number, snapshot); err != nil {
		return nil, fmt.Errorf("saving scored analysis: %w", err)
	}

	md := report.Generate(report.Input{
		Meta:    entry.Meta,
		Scored:  scored,
		Config:  cfg,
		Command: r.Command,
		RunID:   snapshot.ID,
	})

	sum := scoring.Summarize(scored)
	log.Info("phase 2 complete",
		slog.Int("files", sum.Files),
		slog.Int("ai_matches", len(matches)),
		slog.Int("review_required", sum.Counts[model.ReviewRequired]),
	)
	return &Phase2Result{Phase: 2, Report: md, Scored: scored, RunID: snapshot.ID}, nil
}
