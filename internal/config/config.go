package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Thresholds bound how far query-count fixtures may drift and still be
// treated as routine.
type Thresholds struct {
	RelativePercent float64 `json:"relative_percent" validate:"gte=0"`
	AbsoluteDelta   float64 `json:"absolute_delta" validate:"gte=0"`
}

// PatternSpec is a project-defined matching rule.
type PatternSpec struct {
	ID          string `json:"id" validate:"required,pattern_id"`
	Confidence  int    `json:"confidence" validate:"gte=0,lte=100"`
	Category    string `json:"category,omitempty" validate:"omitempty,oneof=REVIEW_REQUIRED LIKELY_REVIEW UNCERTAIN LIKELY_SKIP SAFE_TO_SKIP"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority" validate:"required,oneof=always_review high medium"`
	MatchFile   string `json:"match_file,omitempty" validate:"required_without=MatchLine"`
	MatchLine   string `json:"match_line,omitempty"`
	Lines       string `json:"lines,omitempty" validate:"omitempty,oneof=changed added removed"`
}

// Config is the per-project settings document.
type Config struct {
	BlessedPatterns      []string      `json:"blessed_patterns" validate:"dive,pattern_id"`
	AlwaysReviewPaths    []string      `json:"always_review_paths" validate:"dive,required"`
	QueryCountThresholds Thresholds    `json:"query_count_thresholds"`
	CustomPatterns       []PatternSpec `json:"custom_patterns,omitempty" validate:"dive"`
}

// Default returns the settings used when a project has no config file.
func Default() Config {
	return Config{
		BlessedPatterns:   []string{},
		AlwaysReviewPaths: []string{},
		QueryCountThresholds: Thresholds{
			RelativePercent: 20,
			AbsoluteDelta:   10,
		},
	}
}

// IsBlessed reports whether id is in the blessed list.
func (c Config) IsBlessed(id string) bool {
	for _, b := range c.BlessedPatterns {
		if b == id {
			return true
		}
	}
	return false
}

func (c *Config) normalize() {
	if c.BlessedPatterns == nil {
		c.BlessedPatterns = []string{}
	}
	if c.AlwaysReviewPaths == nil {
		c.AlwaysReviewPaths = []string{}
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("pattern_id", func(fl validator.FieldLevel) bool {
		return ValidatePatternID(fl.Field().String()).Valid
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register pattern_id validation: %v", err))
	}
	return v
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, ", ")
}

// Validate checks c against its struct tags.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var msgs []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "pattern_id":
			msgs = append(msgs, fmt.Sprintf("%s: %q: %s", fe.Namespace(), fe.Value(),
				ValidatePatternID(fmt.Sprint(fe.Value())).Error))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on the '%s' tag", fe.Namespace(), fe.Tag()))
		}
	}
	return &ValidationError{Errors: msgs}
}
