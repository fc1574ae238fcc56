// Package apperr defines the closed set of failure codes prsift reports and
// the retry helper used around hosting-provider calls.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are stable strings and are shown
// to users as a bracketed prefix.
type Code string

const (
	GHNotFound          Code = "GH_NOT_FOUND"
	GHAuthRequired      Code = "GH_AUTH_REQUIRED"
	GHRateLimit         Code = "GH_RATE_LIMIT"
	GHNetwork           Code = "GH_NETWORK"
	GHAPIError          Code = "GH_API_ERROR"
	GHInvalidIdentifier Code = "GH_INVALID_IDENTIFIER"
	DiffParseError      Code = "DIFF_PARSE_ERROR"
	BinaryFile          Code = "BINARY_FILE"
	AITimeout           Code = "AI_TIMEOUT"
	AIParseError        Code = "AI_PARSE_ERROR"
	AIResponseMissing   Code = "AI_RESPONSE_MISSING"
	ConfigMissing       Code = "CONFIG_MISSING"
	ConfigInvalid       Code = "CONFIG_INVALID"
	CacheCorrupted      Code = "CACHE_CORRUPTED"
	CacheMissing        Code = "CACHE_MISSING"
)

// recoverable holds the default recoverability of each code: whether the
// user can fix the condition and try again.
var recoverable = map[Code]bool{
	GHRateLimit:       true,
	GHNetwork:         true,
	AITimeout:         true,
	AIResponseMissing: true,
	ConfigMissing:     true,
	CacheCorrupted:    true,
	CacheMissing:      true,
}

// Error is a classified failure.
type Error struct {
	Code        Code
	Message     string
	Recoverable bool
	Context     map[string]any
	cause       error
}

// Option customizes an Error built by New.
type Option func(*Error)

// Recoverable overrides the code's default recoverability.
func Recoverable(r bool) Option {
	return func(e *Error) { e.Recoverable = r }
}

// WithContext attaches diagnostic key/values.
func WithContext(ctx map[string]any) Option {
	return func(e *Error) {
		if e.Context == nil {
			e.Context = make(map[string]any, len(ctx))
		}
		for k, v := range ctx {
			e.Context[k] = v
		}
	}
}

// Wrap records the underlying cause, reachable through errors.Unwrap.
func Wrap(err error) Option {
	return func(e *Error) { e.cause = err }
}

// New builds an Error for code.
func New(code Code, msg string, opts ...Option) *Error {
	e := &Error{Code: code, Message: msg, Recoverable: recoverable[code]}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage(), e.cause)
	}
	return e.UserMessage()
}

// UserMessage returns the form shown to people: "[CODE] message".
func (e *Error) UserMessage() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error with the same code, so sentinel-style checks like
// errors.Is(err, apperr.New(apperr.GHNotFound, "")) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage renders any error for display; taxonomy errors get their
// bracketed form, anything else its plain text.
func UserMessage(err error) string {
	if e, ok := As(err); ok {
		return e.UserMessage()
	}
	return err.Error()
}
