package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/github"
)

// Markers delimit machine-extractable blocks on stdout. Each is written on
// its own line.
const (
	PromptStart = "__AI_PROMPT_START__"
	PromptEnd   = "__AI_PROMPT_END__"
	ReportStart = "__REPORT_START__"
	ReportEnd   = "__REPORT_END__"
)

// RunOptions selects what Run does and where its output goes.
type RunOptions struct {
	ID github.Identifier
	// Continue runs phase 2 with the response file at AIResponse.
	Continue   bool
	AIResponse string
	// JSON writes the phase result as a JSON document instead of marker
	// delimited text.
	JSON bool
	// Out additionally writes the report to this path.
	Out string
}

// Run executes one phase and writes its output to stdout. When phase 1
// leaves nothing for the model to classify, the report is produced right
// away without a second phase.
func (r *Runner) Run(ctx context.Context, opts RunOptions, stdout io.Writer) error {
	if opts.Continue {
		if opts.AIResponse == "" {
			return apperr.New(apperr.AIResponseMissing, "--continue needs --ai-response FILE")
		}
		res, err := r.Phase2(ctx, opts.ID, opts.AIResponse)
		if err != nil {
			return err
		}
		return r.emitReport(res, opts, stdout)
	}

	res, err := r.Phase1(ctx, opts.ID)
	if err != nil {
		return err
	}
	if res.AIPrompt == nil {
		entry, err := r.Cache.Read(opts.ID.Repo(), opts.ID.Number)
		if err != nil {
			return err
		}
		final, err := r.finish(ctx, opts.ID, entry, nil)
		if err != nil {
			return err
		}
		if opts.JSON {
			if err := r.writeOut(opts.Out, final.Report); err != nil {
				return err
			}
			return writeJSON(stdout, struct {
				*Phase1Result
				Report string `json:"report"`
			}{res, final.Report})
		}
		return r.emitReport(final, opts, stdout)
	}

	if opts.JSON {
		return writeJSON(stdout, res)
	}
	return writeBlock(stdout, PromptStart, *res.AIPrompt, PromptEnd)
}

func (r *Runner) emitReport(res *Phase2Result, opts RunOptions, stdout io.Writer) error {
	if err := r.writeOut(opts.Out, res.Report); err != nil {
		return err
	}
	if opts.JSON {
		return writeJSON(stdout, res)
	}
	return writeBlock(stdout, ReportStart, res.Report, ReportEnd)
}

// writeOut saves the report to path; an empty path is a no-op.
func (r *Runner) writeOut(path, report string) error {
	if path == "" {
		return nil
	}
	if err := r.fs().MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := afero.WriteFile(r.fs(), path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	r.log().Info("report written", slog.String("path", path))
	return nil
}

func writeBlock(w io.Writer, start, body, end string) error {
	if len(body) > 0 && body[len(body)-1] != '\n' {
		body += "\n"
	}
	_, err := fmt.Fprintf(w, "%s\n%s%s\n", start, body, end)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
