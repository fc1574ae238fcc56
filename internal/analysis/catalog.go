package analysis

import (
	"regexp"

	"github.com/sprite-ai/prsift/internal/model"
)

var (
	testPath = regexp.MustCompile(`(^|/)(tests?/|test_[^/]*\.py$|[^/]*_tests?\.py$|conftest\.py$)`)
)

// builtins is the curated rule table, grouped by tier. Always-review rules
// carry deliberately low confidence.
var builtins = []Pattern{
	// always_review
	{
		ID:          "migration-file",
		Confidence:  10,
		Description: "Database migration",
		Priority:    model.PriorityAlwaysReview,
		MatchFile:   regexp.MustCompile(`(^|/)(migrations|alembic/versions|db/migrate)/[^/]+\.(py|sql|rb)$`),
	},
	{
		ID:          "permission-change",
		Confidence:  15,
		Description: "Permission or authentication logic",
		Priority:    model.PriorityAlwaysReview,
		MatchLine: regexp.MustCompile(`\b(permission_classes|has_permission|has_object_permission|` +
			`login_required|permission_required|user_passes_test|IsAuthenticated|IsAdminUser|authenticate)\b`),
	},
	{
		ID:          "model-schema-change",
		Confidence:  20,
		Description: "Model field definition",
		Priority:    model.PriorityAlwaysReview,
		MatchFile:   regexp.MustCompile(`(^|/)models(/[^/]+)?\.py$`),
		MatchLine:   regexp.MustCompile(`=\s*models\.\w+(Field|Key)\(|class\s+Meta\s*:`),
	},
	{
		ID:          "signal-handler",
		Confidence:  20,
		Description: "Signal or event handler",
		Priority:    model.PriorityAlwaysReview,
		MatchLine:   regexp.MustCompile(`@receiver\(|\b(pre|post)_(save|delete|init|migrate)\b|\bm2m_changed\b`),
	},
	{
		ID:          "url-routing",
		Confidence:  25,
		Description: "URL routing",
		Priority:    model.PriorityAlwaysReview,
		MatchFile:   regexp.MustCompile(`(^|/)urls\.py$`),
		MatchLine:   regexp.MustCompile(`\b(path|re_path|url|include)\(|urlpatterns`),
	},
	{
		ID:          "settings-change",
		Confidence:  15,
		Description: "Settings module",
		Priority:    model.PriorityAlwaysReview,
		MatchFile:   regexp.MustCompile(`(^|/)settings(/[^/]+)?\.py$`),
	},

	// high
	{
		ID:          "query-count-json",
		Confidence:  95,
		Description: "Generated query-count fixture",
		Priority:    model.PriorityHigh,
		MatchFile:   regexp.MustCompile(`(^|/)(query_counts?|__query_counts__)/[^/]+\.json$|query_counts?\.json$`),
		Guard:       &NumericGuard{RelativePercent: 20, AbsoluteDelta: 10},
	},
	{
		ID:          "debug-print-removal",
		Confidence:  90,
		Description: "Removed debug output",
		Priority:    model.PriorityHigh,
		MatchLine:   regexp.MustCompile(`^\s*(print\(|pprint\(|breakpoint\(\)|import pdb|pdb\.set_trace\(\)|console\.log\(|debugger;?\s*$)`),
		Lines:       ScopeRemoved,
		Exclusive:   true,
	},
	{
		ID:          "import-cleanup",
		Confidence:  85,
		Description: "Import reorganization",
		Priority:    model.PriorityHigh,
		MatchLine:   regexp.MustCompile(`^\s*(import\s+[\w.]+(\s+as\s+\w+)?|from\s+[\w.]+\s+import\s+[\w\s,()*]+)\s*$`),
		Lines:       ScopeRemoved,
		Exclusive:   true,
	},
	{
		ID:          "gitignore-update",
		Confidence:  95,
		Description: ".gitignore edit",
		Priority:    model.PriorityHigh,
		MatchFile:   regexp.MustCompile(`(^|/)\.gitignore$`),
	},
	{
		ID:          "backfill-command-deletion",
		Confidence:  90,
		Description: "Deleted one-off backfill command",
		Priority:    model.PriorityHigh,
		MatchFile:   regexp.MustCompile(`(^|/)management/commands/[^/]*backfill[^/]*\.py$`),
		Statuses:    []model.FileStatus{model.StatusDeleted},
	},

	// medium
	{
		ID:          "decorator-removal",
		Confidence:  70,
		Description: "Removed decorator",
		Priority:    model.PriorityMedium,
		MatchLine:   regexp.MustCompile(`^\s*@[\w.]+`),
		Lines:       ScopeRemoved,
	},
	{
		ID:          "test-factory-setup",
		Confidence:  65,
		Description: "Test factory setup",
		Priority:    model.PriorityMedium,
		MatchFile:   regexp.MustCompile(`(^|/)(tests?/|factories\.py$|test_[^/]*\.py$)`),
		MatchLine:   regexp.MustCompile(`\w+Factory(\.create|\.build|\.create_batch)?\(|factory\.(SubFactory|Sequence|LazyAttribute)`),
	},
	{
		ID:          "test-rename",
		Confidence:  65,
		Description: "Renamed test",
		Priority:    model.PriorityMedium,
		MatchFile:   testPath,
		MatchLine:   regexp.MustCompile(`^\s*(async\s+)?def\s+test_\w+\(`),
	},
	{
		ID:          "added-assertions",
		Confidence:  75,
		Description: "Added test assertions",
		Priority:    model.PriorityMedium,
		MatchFile:   testPath,
		MatchLine:   regexp.MustCompile(`^\s*(self\.assert\w*\(|assert\s|pytest\.raises\()`),
		Lines:       ScopeAdded,
	},
}

func init() {
	for i := range builtins {
		builtins[i].Origin = OriginBuiltin
		builtins[i].Category = categoryFor(builtins[i].Confidence)
	}
}

// Builtins returns a copy of the built-in catalog in tier order.
func Builtins() []Pattern {
	out := make([]Pattern, len(builtins))
	copy(out, builtins)
	return out
}

// Lookup returns the built-in pattern with the given id.
func Lookup(id string) (Pattern, bool) {
	for _, p := range builtins {
		if p.ID == id {
			return p, true
		}
	}
	return Pattern{}, false
}

// BuiltinIDs lists built-in pattern ids in catalog order.
func BuiltinIDs() []string {
	ids := make([]string, len(builtins))
	for i, p := range builtins {
		ids[i] = p.ID
	}
	return ids
}
