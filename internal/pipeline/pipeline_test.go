package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/cache"
	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/github"
	"github.com/sprite-ai/prsift/internal/model"
)

const mixedDiff = `diff --git a/app/migrations/0001_initial.py b/app/migrations/0001_initial.py
new file mode 100644
--- /dev/null
+++ b/app/migrations/0001_initial.py
@@ -0,0 +1,2 @@
+from django.db import migrations
+operations = []
diff --git a/app/services.py b/app/services.py
--- a/app/services.py
+++ b/app/services.py
@@ -1,2 +1,2 @@
 def total(items):
-    return sum(items)
+    return sum(i.price for i in items)
`

func queryCountDiff(n int) string {
	var b strings.Builder
	for i := range n {
		p := fmt.Sprintf("tests/query_counts/test_%d.json", i)
		fmt.Fprintf(&b, "diff --git a/%s b/%s\n--- a/%s\n+++ b/%s\n@@ -1 +1 @@\n-{\"count\": 10}\n+{\"count\": 12}\n", p, p, p, p)
	}
	return b.String()
}

type fakeFetcher struct {
	meta  model.PRMetadata
	diff  string
	err   error
	calls int
}

func (f *fakeFetcher) FetchPR(_ context.Context, _ github.Identifier) (model.PRMetadata, string, error) {
	f.calls++
	return f.meta, f.diff, f.err
}

var prID = github.Identifier{Owner: "acme", Name: "shop", Number: 12}

func newRunner(t *testing.T, raw string) (*Runner, *fakeFetcher, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{
		meta: model.PRMetadata{Number: 12, Title: "Checkout totals", HeadRefOid: "sha-1", BaseRefName: "main"},
		diff: raw,
	}
	return &Runner{
		Fetcher:     f,
		Cache:       cache.New("/cache", fs),
		Configs:     config.NewStore("/config", fs),
		FS:          fs,
		ProjectRoot: "/work/shop",
	}, f, fs
}

func TestPhase1(t *testing.T) {
	r, _, _ := newRunner(t, mixedDiff)

	res, err := r.Phase1(context.Background(), prID)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Phase)
	require.Len(t, res.ParsedDiff, 2)
	require.Contains(t, res.MatchResult.Matched, "migration-file")
	assert.Equal(t, model.PriorityAlwaysReview, res.MatchResult.Matched["migration-file"].Priority)
	require.Len(t, res.MatchResult.Unmatched, 1)
	assert.Equal(t, "app/services.py", res.MatchResult.Unmatched[0].Path)
	require.NotNil(t, res.AIPrompt)
	assert.Contains(t, *res.AIPrompt, "=== FILE: app/services.py ===")
	assert.NotContains(t, *res.AIPrompt, "0001_initial.py")

	entry := r.Cache.Get(prID.Repo(), prID.Number, "sha-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Analysis)
	assert.Equal(t, []string{"app/services.py"}, entry.Analysis.Unmatched)
}

func TestPhase1ReusesCachedDiff(t *testing.T) {
	r, f, _ := newRunner(t, mixedDiff)
	ctx := context.Background()

	_, err := r.Phase1(ctx, prID)
	require.NoError(t, err)

	f.diff = "diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ -1,5 +1,5 @@\n+only one line\n"
	res, err := r.Phase1(ctx, prID)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Len(t, res.ParsedDiff, 2)

	r.Refresh = true
	_, err = r.Phase1(ctx, prID)
	assert.Equal(t, apperr.DiffParseError, apperr.CodeOf(err))

	r.Refresh = false
	f.meta.HeadRefOid = "sha-2"
	_, err = r.Phase1(ctx, prID)
	assert.Equal(t, apperr.DiffParseError, apperr.CodeOf(err), "new head commit must not hit the cache")
}

func TestPhase1PropagatesFetchErrors(t *testing.T) {
	r, f, _ := newRunner(t, mixedDiff)
	f.err = apperr.New(apperr.GHNotFound, "pull request acme/shop#12 not found")

	_, err := r.Phase1(context.Background(), prID)
	assert.Equal(t, apperr.GHNotFound, apperr.CodeOf(err))
	assert.Empty(t, mustList(t, r.Cache))
}

func mustList(t *testing.T, s *cache.Store) []cache.Key {
	t.Helper()
	keys, err := s.List()
	require.NoError(t, err)
	return keys
}

func TestPhase2(t *testing.T) {
	r, _, fs := newRunner(t, mixedDiff)
	ctx := context.Background()

	_, err := r.Phase1(ctx, prID)
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/tmp/response.json", []byte("```json\n"+`{"files":[
		{"file":"app/services.py","pattern_id":"ai-price-sum","confidence":35,"explanation":"Changes how totals are computed"}
	]}`+"\n```"), 0o644))

	res, err := r.Phase2(ctx, prID, "/tmp/response.json")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Phase)
	require.Len(t, res.Scored, 2)
	assert.Equal(t, "app/migrations/0001_initial.py", res.Scored[0].File.Path)
	assert.Equal(t, model.ReviewRequired, res.Scored[0].FinalCategory)
	assert.Equal(t, model.LikelyReview, res.Scored[1].FinalCategory)
	assert.Contains(t, res.Report, "Changes how totals are computed")
	assert.Contains(t, res.Report, "prsift bless ai-price-sum")
	assert.Contains(t, res.Report, res.RunID)

	entry, err := r.Cache.Read(prID.Repo(), prID.Number)
	require.NoError(t, err)
	require.NotNil(t, entry.Analysis)
	assert.Len(t, entry.Analysis.Scored, 2)
}

func TestPhase2Errors(t *testing.T) {
	r, _, _ := newRunner(t, mixedDiff)
	ctx := context.Background()

	_, err := r.Phase2(ctx, prID, "/tmp/response.json")
	require.Error(t, err)
	assert.Equal(t, apperr.CacheMissing, apperr.CodeOf(err))
	assert.Contains(t, apperr.UserMessage(err), "run phase 1 first")

	_, err = r.Phase1(ctx, prID)
	require.NoError(t, err)

	_, err = r.Phase2(ctx, prID, "/tmp/missing.json")
	require.Error(t, err)
	assert.Equal(t, apperr.AIResponseMissing, apperr.CodeOf(err))
	assert.Contains(t, apperr.UserMessage(err), "/tmp/missing.json")
}

func TestRunPhase1Markers(t *testing.T) {
	r, _, _ := newRunner(t, mixedDiff)

	var out bytes.Buffer
	require.NoError(t, r.Run(context.Background(), RunOptions{ID: prID}, &out))

	s := out.String()
	assert.True(t, strings.HasPrefix(s, PromptStart+"\n"))
	assert.True(t, strings.HasSuffix(s, "\n"+PromptEnd+"\n"))
	assert.NotContains(t, s, ReportStart)
}

func TestRunWithoutUnmatchedFilesReportsImmediately(t *testing.T) {
	r, _, fs := newRunner(t, queryCountDiff(5))

	var out bytes.Buffer
	require.NoError(t, r.Run(context.Background(), RunOptions{ID: prID, Out: "/reports/pr-12.md"}, &out))

	s := out.String()
	assert.NotContains(t, s, PromptStart)
	require.True(t, strings.HasPrefix(s, ReportStart+"\n"))
	assert.True(t, strings.HasSuffix(s, ReportEnd+"\n"))
	assert.Contains(t, s, "`query-count-json` (5 file(s))")
	assert.Contains(t, s, "_+4 more_")

	written, err := afero.ReadFile(fs, "/reports/pr-12.md")
	require.NoError(t, err)
	assert.Contains(t, s, string(written))
}

func TestRunWithoutUnmatchedFilesJSONWritesOut(t *testing.T) {
	r, _, fs := newRunner(t, queryCountDiff(2))

	var out bytes.Buffer
	require.NoError(t, r.Run(context.Background(), RunOptions{ID: prID, JSON: true, Out: "/reports/pr-12.md"}, &out))

	var res struct {
		Report string `json:"report"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.NotEmpty(t, res.Report)

	written, err := afero.ReadFile(fs, "/reports/pr-12.md")
	require.NoError(t, err)
	assert.Equal(t, res.Report, string(written))
}

func TestRunContinue(t *testing.T) {
	r, _, fs := newRunner(t, mixedDiff)
	ctx := context.Background()
	require.NoError(t, r.Run(ctx, RunOptions{ID: prID}, &bytes.Buffer{}))
	require.NoError(t, afero.WriteFile(fs, "/resp.json", []byte(`{"files":[]}`), 0o644))

	var out bytes.Buffer
	require.NoError(t, r.Run(ctx, RunOptions{ID: prID, Continue: true, AIResponse: "/resp.json", JSON: true}, &out))

	var res Phase2Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 2, res.Phase)
	assert.Contains(t, res.Report, "# PR #12: Checkout totals")

	err := r.Run(ctx, RunOptions{ID: prID, Continue: true}, &out)
	assert.Equal(t, apperr.AIResponseMissing, apperr.CodeOf(err))
}

func TestRunPhase1JSON(t *testing.T) {
	r, _, _ := newRunner(t, mixedDiff)

	var out bytes.Buffer
	require.NoError(t, r.Run(context.Background(), RunOptions{ID: prID, JSON: true}, &out))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	for _, key := range []string{"phase", "prData", "parsedDiff", "matchResult", "aiPrompt"} {
		assert.Contains(t, doc, key)
	}
	assert.EqualValues(t, 1, doc["phase"])
}
