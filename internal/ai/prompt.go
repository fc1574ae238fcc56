// Package ai builds the prompt handed to an external model for files no
// heuristic claimed, and normalizes the model's JSON reply.
package ai

import (
	"fmt"
	"strings"

	"github.com/sprite-ai/prsift/internal/analysis"
	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/model"
)

// DefaultMaxLinesPerFile caps the changed lines quoted for one file.
const DefaultMaxLinesPerFile = 200

// PromptOptions tunes GeneratePrompt.
type PromptOptions struct {
	Config config.Config
	// MaxLinesPerFile limits quoted lines per file; 0 means unlimited.
	MaxLinesPerFile int
}

const instructions = `Classify each file above by how safely a human reviewer could skip it.

Respond with ONLY a JSON object, no prose and no markdown fences, shaped exactly like:
{
  "files": [
    {
      "file": "path/exactly/as/shown",
      "pattern_id": "short-kebab-case-name",
      "confidence": 0-100,
      "explanation": "one sentence on what the change does"
    }
  ]
}

Rules:
1. Include one entry per file listed above, using the path exactly as shown.
2. confidence is on a 0-100 scale: 0 means the change certainly needs review, 100 means it is certainly safe to skip.
3. pattern_id names the kind of change in lowercase letters, digits, and single hyphens (2-50 characters). Reuse a known pattern id when one fits.
4. Anything touching security, data migrations, money, or public API contracts should score 20 or lower.`

// GeneratePrompt returns the text block describing the unmatched files of a
// PR, followed by the response-format instructions.
func GeneratePrompt(meta model.PRMetadata, unmatched []model.FileDiff, opts PromptOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are triaging pull request #%d for code review.\n\n", meta.Number)
	fmt.Fprintf(&b, "Title: %s\n", meta.Title)
	if meta.Body != nil && strings.TrimSpace(*meta.Body) != "" {
		b.WriteString("\nDescription:\n")
		b.WriteString(strings.TrimSpace(*meta.Body))
		b.WriteString("\n")
	}

	known := append(analysis.BuiltinIDs(), opts.Config.BlessedPatterns...)
	fmt.Fprintf(&b, "\nKnown pattern ids: %s\n", strings.Join(known, ", "))

	t := opts.Config.QueryCountThresholds
	fmt.Fprintf(&b, "Query-count fixture changes are routine when each count moves by at most %g or %g%%.\n",
		t.AbsoluteDelta, t.RelativePercent)

	fmt.Fprintf(&b, "\n%d file(s) need classification.\n", len(unmatched))
	for _, f := range unmatched {
		writeFile(&b, f, opts.MaxLinesPerFile)
	}

	b.WriteString("\n")
	b.WriteString(instructions)
	b.WriteString("\n")
	return b.String()
}

func writeFile(b *strings.Builder, f model.FileDiff, maxLines int) {
	fmt.Fprintf(b, "\n=== FILE: %s ===\n", f.Path)
	fmt.Fprintf(b, "Status: %s (+%d/-%d)\n", f.Status, f.Additions, f.Deletions)
	if f.OldPath != nil {
		fmt.Fprintf(b, "Renamed from: %s\n", *f.OldPath)
	}
	if f.Binary {
		b.WriteString("(binary file, no content)\n")
		return
	}

	written := 0
	total := 0
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if l.Changed() {
				total++
			}
		}
	}
	for _, h := range f.Hunks {
		if maxLines > 0 && written >= maxLines {
			break
		}
		b.WriteString(h.Range())
		b.WriteString("\n")
		for _, l := range h.Lines {
			if !l.Changed() {
				continue
			}
			if maxLines > 0 && written >= maxLines {
				break
			}
			b.WriteString(l.Type.Prefix())
			b.WriteString(l.Content)
			b.WriteString("\n")
			written++
		}
	}
	if written < total {
		fmt.Fprintf(b, "... %d more changed line(s) omitted\n", total-written)
	}
}
