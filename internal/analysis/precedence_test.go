package analysis

import (
	"testing"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/model"
)

func TestBuiltinsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Builtins() {
		if seen[p.ID] {
			t.Errorf("duplicate id %s", p.ID)
		}
		seen[p.ID] = true
		if v := config.ValidatePatternID(p.ID); !v.Valid {
			t.Errorf("%s: %s", p.ID, v.Error)
		}
		if p.MatchFile == nil && p.MatchLine == nil {
			t.Errorf("%s has no matcher", p.ID)
		}
		if !p.Priority.Valid() {
			t.Errorf("%s has invalid priority %q", p.ID, p.Priority)
		}
		if p.Priority == model.PriorityAlwaysReview && (p.Confidence < 10 || p.Confidence > 25) {
			t.Errorf("%s: always-review confidence %d outside 10-25", p.ID, p.Confidence)
		}
	}
	for _, id := range []string{"migration-file", "query-count-json", "gitignore-update"} {
		if !seen[id] {
			t.Errorf("missing built-in %s", id)
		}
	}
}

func TestSortByPrecedenceTiers(t *testing.T) {
	cfg := config.Default()
	cfg.AlwaysReviewPaths = []string{"billing/"}
	cfg.CustomPatterns = []config.PatternSpec{
		{ID: "lockfile-bump", Confidence: 92, Priority: "high", MatchFile: `poetry\.lock$`},
		{ID: "snapshot-update", Confidence: 70, Priority: "medium", MatchFile: `__snapshots__/`},
		{ID: "payments-code", Confidence: 10, Priority: "always_review", MatchFile: `^payments/`},
	}

	patterns, err := SortByPrecedence(cfg)
	if err != nil {
		t.Fatal(err)
	}

	index := map[string]int{}
	for i, p := range patterns {
		index[p.ID] = i
		if i > 0 && patterns[i-1].Priority.Rank() > p.Priority.Rank() {
			t.Errorf("%s (%s) after %s (%s)", p.ID, p.Priority, patterns[i-1].ID, patterns[i-1].Priority)
		}
	}

	before := func(a, b string) {
		t.Helper()
		if index[a] >= index[b] {
			t.Errorf("expected %s before %s", a, b)
		}
	}
	before("always-review-path-1", "migration-file")
	before("payments-code", "migration-file")
	before("settings-change", "lockfile-bump")
	before("lockfile-bump", "query-count-json")
	before("backfill-command-deletion", "snapshot-update")
	before("snapshot-update", "decorator-removal")

	if patterns[index["lockfile-bump"]].Category != model.SafeToSkip {
		t.Errorf("custom category should default from confidence")
	}
}

func TestSortByPrecedenceInvalidRegex(t *testing.T) {
	cfg := config.Default()
	cfg.CustomPatterns = []config.PatternSpec{{ID: "broken", Priority: "high", MatchLine: `(`}}

	_, err := SortByPrecedence(cfg)
	if apperr.CodeOf(err) != apperr.ConfigInvalid {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestGlobRegexp(t *testing.T) {
	tests := []struct {
		glob  string
		path  string
		match bool
	}{
		{"billing/", "billing/models.py", true},
		{"billing/", "billing_old/x.py", false},
		{"billing", "billing/x/y.py", true},
		{"billing", "billing", true},
		{"*.sql", "schema.sql", true},
		{"*.sql", "db/schema.sql", false},
		{"**/*.sql", "db/schema.sql", true},
		{"**/*.sql", "schema.sql", true},
		{"src/**/auth.py", "src/auth.py", true},
		{"src/**/auth.py", "src/a/b/auth.py", true},
		{"src/**/auth.py", "src/oauth.py", false},
		{"api/v?/urls.py", "api/v2/urls.py", true},
	}
	for _, tt := range tests {
		re, err := globRegexp(tt.glob)
		if err != nil {
			t.Fatalf("globRegexp(%q): %v", tt.glob, err)
		}
		if got := re.MatchString(tt.path); got != tt.match {
			t.Errorf("glob %q on %q = %v, want %v", tt.glob, tt.path, got, tt.match)
		}
	}
}
