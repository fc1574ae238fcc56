package ai

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/model"
	"github.com/sprite-ai/prsift/internal/scoring"
)

// DefaultConfidence replaces confidences that are not numbers.
const DefaultConfidence = 50

func parseError(msg string, err error) error {
	opts := []apperr.Option{}
	if err != nil {
		opts = append(opts, apperr.Wrap(err))
	}
	return apperr.New(apperr.AIParseError, msg, opts...)
}

// ParseResponse normalizes a model reply of the form
// {"files": [{file, pattern_id, confidence, explanation}]}. The reply may be
// wrapped in a markdown code fence. Entries without a file are skipped.
func ParseResponse(raw []byte) ([]model.AIMatch, error) {
	content := stripFence(strings.TrimSpace(string(raw)))
	if content == "" || content == "null" {
		return nil, parseError("invalid response: empty", nil)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, parseError("invalid response: expected a JSON object", err)
	}
	if doc == nil {
		return nil, parseError("invalid response: empty", nil)
	}

	filesRaw, ok := doc["files"]
	if !ok {
		return nil, parseError("invalid response: missing files", nil)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(filesRaw, &entries); err != nil || entries == nil {
		return nil, parseError("invalid response: files must be an array", err)
	}

	out := make([]model.AIMatch, 0, len(entries))
	for _, e := range entries {
		var fields map[string]any
		if err := json.Unmarshal(e, &fields); err != nil || fields == nil {
			continue
		}
		file, _ := fields["file"].(string)
		if file == "" {
			continue
		}
		patternID, _ := fields["pattern_id"].(string)
		if patternID == "" {
			patternID = model.UnknownPatternID
		}
		explanation, _ := fields["explanation"].(string)

		out = append(out, model.AIMatch{
			File:        file,
			PatternID:   patternID,
			Confidence:  confidence(fields["confidence"]),
			Explanation: explanation,
			Source:      model.AISource,
		})
	}
	return out, nil
}

func confidence(v any) float64 {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return DefaultConfidence
		}
		f = parsed
	default:
		return DefaultConfidence
	}
	if math.IsNaN(f) {
		return DefaultConfidence
	}
	return scoring.Clamp(f)
}

// stripFence removes a surrounding ```json ... ``` block.
func stripFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}

// ReadResponseFile loads and parses a response file. A missing file is an
// AI_RESPONSE_MISSING error.
func ReadResponseFile(fs afero.Fs, path string) ([]model.AIMatch, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.New(apperr.AIResponseMissing, "AI response file not found: "+path,
				apperr.WithContext(map[string]any{"path": path}))
		}
		return nil, apperr.New(apperr.AIResponseMissing, "reading AI response file", apperr.Wrap(err))
	}
	return ParseResponse(data)
}
