package config

import (
	"regexp"
	"strings"
)

// ReservedPrefix is kept for built-in pattern identifiers.
const ReservedPrefix = "_builtin-"

var patternIDChars = regexp.MustCompile(`^[a-z0-9-]+$`)

// Validation is the outcome of ValidatePatternID.
type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func invalid(msg string) Validation { return Validation{Error: msg} }

// ValidatePatternID checks that id is usable as a blessed pattern
// identifier. It never fails; the reason is reported in the result.
func ValidatePatternID(id string) Validation {
	switch {
	case len(id) < 2 || len(id) > 50:
		return invalid("pattern ID must be between 2 and 50 characters")
	case strings.HasPrefix(id, ReservedPrefix):
		return invalid(`pattern ID must not use the reserved prefix "` + ReservedPrefix + `"`)
	case !patternIDChars.MatchString(id):
		return invalid("pattern ID may only contain lowercase letters, digits, and hyphens")
	case id[0] < 'a' || id[0] > 'z':
		return invalid("pattern ID must start with a lowercase letter")
	case strings.HasSuffix(id, "-"):
		return invalid("pattern ID must not end with a hyphen")
	case strings.Contains(id, "--"):
		return invalid("pattern ID must not contain consecutive hyphens")
	}
	return Validation{Valid: true}
}

// BlessResult reports what Bless did.
type BlessResult struct {
	Validation
	Config         *Config `json:"config,omitempty"`
	AlreadyBlessed bool    `json:"already_blessed,omitempty"`
}

// Bless validates id and, when valid, records it in the project's
// blessed_patterns. Invalid ids are reported in the result without touching
// the store; store failures are returned as errors.
func Bless(s *Store, projectRoot, id string) (BlessResult, error) {
	v := ValidatePatternID(id)
	if !v.Valid {
		return BlessResult{Validation: v}, nil
	}

	before, err := s.Load(projectRoot)
	if err != nil {
		return BlessResult{}, err
	}
	cfg, err := s.BlessPattern(projectRoot, id)
	if err != nil {
		return BlessResult{}, err
	}
	return BlessResult{Validation: v, Config: &cfg, AlreadyBlessed: before.IsBlessed(id)}, nil
}
