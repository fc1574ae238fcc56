package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/model"
)

const testDiff = `diff --git a/shop/migrations/0002_price.py b/shop/migrations/0002_price.py
new file mode 100644
--- /dev/null
+++ b/shop/migrations/0002_price.py
@@ -0,0 +1,2 @@
+from django.db import migrations
+operations = []
diff --git a/shop/cart.py b/shop/cart.py
--- a/shop/cart.py
+++ b/shop/cart.py
@@ -1,3 +1,3 @@
 def total(cart):
-    return sum(cart)
+    return sum(i.price for i in cart)
 
`

func newTestServer() *Server {
	return New(Options{Addr: ":0"})
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json decode: %v: %s", err, w.Body.String())
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	w := do(t, newTestServer(), http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := decode[map[string]string](t, w); resp["status"] != "ok" {
		t.Errorf("expected status ok, got %q", resp["status"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestMatchEndpoint(t *testing.T) {
	w := do(t, newTestServer(), http.MethodPost, "/api/match", matchRequest{Diff: testDiff, Title: "Prices", Number: 3})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[matchResponse](t, w)
	if resp.Stats.Files != 2 || resp.Stats.Added != 3 || resp.Stats.Deleted != 1 {
		t.Errorf("unexpected stats %+v", resp.Stats)
	}
	m := resp.MatchResult.Matched["migration-file"]
	if m == nil || m.MatchedFiles[0] != "shop/migrations/0002_price.py" {
		t.Fatalf("expected migration-file match, got %+v", resp.MatchResult.Matched)
	}
	if len(resp.MatchResult.Unmatched) != 1 || resp.MatchResult.Unmatched[0].Path != "shop/cart.py" {
		t.Errorf("unexpected unmatched %+v", resp.MatchResult.Unmatched)
	}
	if resp.AIPrompt == nil || !strings.Contains(*resp.AIPrompt, "=== FILE: shop/cart.py ===") {
		t.Errorf("expected prompt for shop/cart.py, got %v", resp.AIPrompt)
	}
}

func TestMatchEndpointInlineConfig(t *testing.T) {
	cfg := `{"always_review_paths": ["shop/cart.py"]}`
	w := do(t, newTestServer(), http.MethodPost, "/api/match",
		matchRequest{Diff: testDiff, Config: json.RawMessage(cfg)})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[matchResponse](t, w)
	if resp.MatchResult.Matched["always-review-path-0"] == nil {
		t.Errorf("expected always-review-path-0 match, got %+v", resp.MatchResult.Order)
	}
	if resp.AIPrompt != nil {
		t.Error("expected no prompt when every file matched")
	}
}

func TestMatchEndpointStoredConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := config.NewStore("/cfg", fs)
	cfg := config.Default()
	cfg.AlwaysReviewPaths = []string{"shop/*.py"}
	if err := store.Save("/work/shop", cfg); err != nil {
		t.Fatal(err)
	}

	srv := New(Options{Configs: store, ProjectRoot: "/work/shop"})
	resp := decode[matchResponse](t, do(t, srv, http.MethodPost, "/api/match", matchRequest{Diff: testDiff}))

	m := resp.MatchResult.Matched["always-review-path-0"]
	if m == nil || len(m.MatchedFiles) != 1 || m.MatchedFiles[0] != "shop/cart.py" {
		t.Errorf("expected stored always_review_paths to claim shop/cart.py, got %+v", resp.MatchResult.Matched)
	}
}

func TestMatchEndpointErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"invalid json", "{not json", ""},
		{"missing diff", matchRequest{}, ""},
		{"malformed diff", matchRequest{Diff: "diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ -1,5 +1,5 @@\n+x\n"}, "DIFF_PARSE_ERROR"},
		{"invalid config", matchRequest{Diff: testDiff, Config: json.RawMessage(`{"blessed_patterns": ["Bad ID"]}`)}, "CONFIG_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newTestServer(), http.MethodPost, "/api/match", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			resp := decode[errorResponse](t, w)
			if resp.Error == "" || resp.Code != tt.wantCode {
				t.Errorf("unexpected error body %+v", resp)
			}
		})
	}
}

func TestScoreEndpoint(t *testing.T) {
	aiObject := `{"files": [{"file": "shop/cart.py", "pattern_id": "ai-price-sum", "confidence": 85, "explanation": "Sums prices"}]}`
	aiText, _ := json.Marshal("```json\n" + aiObject + "\n```")

	for name, raw := range map[string]string{"object": aiObject, "string": string(aiText)} {
		t.Run(name, func(t *testing.T) {
			w := do(t, newTestServer(), http.MethodPost, "/api/score",
				scoreRequest{Diff: testDiff, AIResponse: json.RawMessage(raw), Title: "Prices", Number: 3})
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}

			resp := decode[scoreResponse](t, w)
			if len(resp.Scored) != 2 {
				t.Fatalf("expected 2 scored files, got %d", len(resp.Scored))
			}
			if resp.Scored[0].FinalCategory != model.ReviewRequired {
				t.Errorf("migration category = %v, want REVIEW_REQUIRED", resp.Scored[0].FinalCategory)
			}
			if resp.Scored[1].FinalCategory != model.SafeToSkip {
				t.Errorf("cart category = %v, want SAFE_TO_SKIP", resp.Scored[1].FinalCategory)
			}
			if resp.Summary["SAFE_TO_SKIP"] != 1 || resp.Summary["REVIEW_REQUIRED"] != 1 {
				t.Errorf("unexpected summary %v", resp.Summary)
			}
			if !strings.Contains(resp.Report, "# PR #3: Prices") || !strings.Contains(resp.Report, "prsift bless ai-price-sum") {
				t.Errorf("unexpected report:\n%s", resp.Report)
			}
		})
	}
}

func TestScoreEndpointWithoutAIResponse(t *testing.T) {
	resp := decode[scoreResponse](t, do(t, newTestServer(), http.MethodPost, "/api/score", scoreRequest{Diff: testDiff}))
	if len(resp.Scored) != 2 || resp.Scored[1].FinalCategory != model.Uncertain {
		t.Errorf("expected unmatched file to be UNCERTAIN, got %+v", resp.Scored)
	}
}

func TestScoreEndpointBadAIResponse(t *testing.T) {
	w := do(t, newTestServer(), http.MethodPost, "/api/score",
		scoreRequest{Diff: testDiff, AIResponse: json.RawMessage(`{"files": "nope"}`)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decode[errorResponse](t, w); resp.Code != "AI_PARSE_ERROR" {
		t.Errorf("code = %q, want AI_PARSE_ERROR", resp.Code)
	}
}

func TestPatternsEndpoint(t *testing.T) {
	w := do(t, newTestServer(), http.MethodGet, "/api/patterns", nil)
	resp := decode[map[string][]patternJSON](t, w)

	patterns := resp["patterns"]
	if len(patterns) == 0 {
		t.Fatal("expected patterns")
	}
	if patterns[0].Priority != model.PriorityAlwaysReview {
		t.Errorf("first pattern priority = %s, want always_review", patterns[0].Priority)
	}
	if last := patterns[len(patterns)-1]; last.Priority != model.PriorityMedium {
		t.Errorf("last pattern priority = %s, want medium", last.Priority)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodGet, "/health", nil)
	do(t, srv, http.MethodPost, "/api/score", scoreRequest{Diff: testDiff})

	body := do(t, srv, http.MethodGet, "/metrics", nil).Body.String()
	for _, want := range []string{
		`prsift_http_requests_total{method="GET",route="/health",status="200"} 1`,
		`prsift_files_classified_total{category="UNCERTAIN"} 1`,
		`prsift_http_request_duration_seconds_count{method="POST",route="/api/score"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
