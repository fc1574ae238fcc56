package model

import (
	"encoding/json"
	"testing"
)

func TestCategoryString(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{ReviewRequired, "REVIEW_REQUIRED"},
		{LikelyReview, "LIKELY_REVIEW"},
		{Uncertain, "UNCERTAIN"},
		{LikelySkip, "LIKELY_SKIP"},
		{SafeToSkip, "SAFE_TO_SKIP"},
		{Category(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestCategoryJSON(t *testing.T) {
	b, err := json.Marshal(ScoredChange{FinalCategory: LikelySkip})
	if err != nil {
		t.Fatal(err)
	}
	var back ScoredChange
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.FinalCategory != LikelySkip {
		t.Errorf("round trip category = %v, want %v", back.FinalCategory, LikelySkip)
	}

	var c Category
	if err := c.UnmarshalText([]byte("NOPE")); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityAlwaysReview.Rank() < PriorityHigh.Rank() && PriorityHigh.Rank() < PriorityMedium.Rank()) {
		t.Error("tiers out of order")
	}
	if Priority("low").Valid() {
		t.Error("unexpected valid priority")
	}
}

func TestScoredChangePatternID(t *testing.T) {
	s := ScoredChange{AIAnalysis: &AIMatch{PatternID: "ai-x"}}
	if got := s.PatternID(); got != "ai-x" {
		t.Errorf("PatternID() = %q, want ai-x", got)
	}
	s.HeuristicMatches = []HeuristicMatch{{PatternID: "import-cleanup"}}
	if got := s.PatternID(); got != "import-cleanup" {
		t.Errorf("PatternID() = %q, want import-cleanup", got)
	}
	if got := (ScoredChange{}).PatternID(); got != "" {
		t.Errorf("PatternID() = %q, want empty", got)
	}
}

func TestHunkRange(t *testing.T) {
	h := Hunk{OldStart: 1, OldCount: 3, NewStart: 1, NewCount: 4, Header: "def f():"}
	if got := h.Range(); got != "@@ -1,3 +1,4 @@ def f():" {
		t.Errorf("Range() = %q", got)
	}
}
