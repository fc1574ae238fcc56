package api

import (
	"encoding/json"
	"net/http"

	"github.com/sprite-ai/prsift/internal/ai"
	"github.com/sprite-ai/prsift/internal/analysis"
	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/diff"
	"github.com/sprite-ai/prsift/internal/model"
	"github.com/sprite-ai/prsift/internal/report"
	"github.com/sprite-ai/prsift/internal/scoring"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// config resolves the request's config: the inline document when given,
// else the project's stored config.
func (s *Server) config(raw json.RawMessage) (config.Config, error) {
	if len(raw) > 0 && string(raw) != "null" {
		return config.Parse(raw)
	}
	if s.opts.Configs == nil {
		return config.Default(), nil
	}
	return s.opts.Configs.Load(s.opts.ProjectRoot)
}

type diffStatsJSON struct {
	Files   int `json:"files"`
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

func stats(files []model.FileDiff) diffStatsJSON {
	n, added, deleted := diff.Stats(files)
	return diffStatsJSON{Files: n, Added: added, Deleted: deleted}
}

// --- Patterns ---

type patternJSON struct {
	ID          string         `json:"id"`
	Priority    model.Priority `json:"priority"`
	Confidence  int            `json:"confidence"`
	Category    model.Category `json:"category"`
	Origin      string         `json:"origin"`
	Description string         `json:"description,omitempty"`
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.config(nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	patterns, err := analysis.SortByPrecedence(cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]patternJSON, len(patterns))
	for i, p := range patterns {
		out[i] = patternJSON{
			ID:          p.ID,
			Priority:    p.Priority,
			Confidence:  p.Confidence,
			Category:    p.Category,
			Origin:      string(p.Origin),
			Description: p.Description,
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"patterns": out})
}

// --- Match ---

type matchRequest struct {
	Diff   string          `json:"diff"`
	Config json.RawMessage `json:"config,omitempty"`
	Title  string          `json:"title,omitempty"`
	Number int             `json:"number,omitempty"`
}

type matchResponse struct {
	MatchResult *analysis.MatchResult `json:"matchResult"`
	AIPrompt    *string               `json:"aiPrompt"`
	Stats       diffStatsJSON         `json:"stats"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, "invalid request: "+err.Error())
		return
	}
	if req.Diff == "" {
		s.badRequest(w, "diff is required")
		return
	}

	files, cfg, res, ok := s.match(w, r, req.Diff, req.Config)
	if !ok {
		return
	}

	resp := matchResponse{MatchResult: res, Stats: stats(files)}
	if len(res.Unmatched) > 0 {
		prompt := ai.GeneratePrompt(model.PRMetadata{Number: req.Number, Title: req.Title},
			res.Unmatched, ai.PromptOptions{Config: cfg})
		resp.AIPrompt = &prompt
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// match parses and matches a diff, writing the error response itself when
// any step fails.
func (s *Server) match(w http.ResponseWriter, r *http.Request, raw string, rawCfg json.RawMessage) ([]model.FileDiff, config.Config, *analysis.MatchResult, bool) {
	files, err := diff.Parse(raw)
	if err != nil {
		s.writeError(w, r, err)
		return nil, config.Config{}, nil, false
	}
	cfg, err := s.config(rawCfg)
	if err != nil {
		s.writeError(w, r, err)
		return nil, config.Config{}, nil, false
	}
	patterns, err := analysis.SortByPrecedence(cfg)
	if err != nil {
		s.writeError(w, r, err)
		return nil, config.Config{}, nil, false
	}
	return files, cfg, analysis.MatchPatterns(files, patterns), true
}

// --- Score ---

type scoreRequest struct {
	Diff string `json:"diff"`
	// AIResponse is the model's reply, either as a JSON object or as the
	// raw text string the model produced.
	AIResponse json.RawMessage `json:"ai_response,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
	Title      string          `json:"title,omitempty"`
	Number     int             `json:"number,omitempty"`
}

type scoreResponse struct {
	Scored  []model.ScoredChange `json:"scored"`
	Summary map[string]int       `json:"summary"`
	Report  string               `json:"report"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, "invalid request: "+err.Error())
		return
	}
	if req.Diff == "" {
		s.badRequest(w, "diff is required")
		return
	}

	var matches []model.AIMatch
	if len(req.AIResponse) > 0 && string(req.AIResponse) != "null" {
		body := []byte(req.AIResponse)
		var text string
		if json.Unmarshal(req.AIResponse, &text) == nil {
			body = []byte(text)
		}
		var err error
		if matches, err = ai.ParseResponse(body); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	files, cfg, res, ok := s.match(w, r, req.Diff, req.Config)
	if !ok {
		return
	}

	scored := scoring.AggregateResults(files, res.Matches(), matches, s.opts.Weights)
	sum := scoring.Summarize(scored)
	counts := make(map[string]int, len(model.Categories))
	for _, c := range model.Categories {
		counts[c.String()] = sum.Counts[c]
		s.metrics.files.WithLabelValues(c.String()).Add(float64(sum.Counts[c]))
	}

	md := report.Generate(report.Input{
		Meta:    model.PRMetadata{Number: req.Number, Title: req.Title},
		Scored:  scored,
		Config:  cfg,
		Command: s.opts.Command,
		RunID:   getRequestID(r.Context()),
	})
	s.writeJSON(w, http.StatusOK, scoreResponse{Scored: scored, Summary: counts, Report: md})
}
