package status

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgs is returned for malformed or missing required arguments.
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrExist is returned when a first-writer-wins artifact is already present.
	ErrExist = errors.New("already exists")

	// ErrNotFound is returned when a requested version, resource or file is absent.
	ErrNotFound = errors.New("not found")

	// ErrCorruption is returned on structural mismatches in durable state.
	ErrCorruption = errors.New("corruption")

	// ErrConfig is returned when serialized content cannot be parsed.
	ErrConfig = errors.New("config error")

	// ErrInvalidPlan is returned when no execution stages can be computed
	// for a non-empty plan (cyclic or dangling dependencies).
	ErrInvalidPlan = errors.New("invalid plan")
)

// IsInvalidArgs reports whether err is classified as ErrInvalidArgs.
func IsInvalidArgs(err error) bool { return errors.Is(err, ErrInvalidArgs) }

// IsExist reports whether err is classified as ErrExist.
func IsExist(err error) bool { return errors.Is(err, ErrExist) }

// IsNotFound reports whether err is classified as ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorruption reports whether err is classified as ErrCorruption.
func IsCorruption(err error) bool { return errors.Is(err, ErrCorruption) }

// IsConfigError reports whether err is classified as ErrConfig.
func IsConfigError(err error) bool { return errors.Is(err, ErrConfig) }

// IsInvalidPlan reports whether err is classified as ErrInvalidPlan.
func IsInvalidPlan(err error) bool { return errors.Is(err, ErrInvalidPlan) }

// ParseError describes malformed serialized content.
//
// It is classified as ErrConfig; the decoder error is available via errors.Unwrap.
type ParseError struct {
	Path  string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse: %v", e.Cause)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Cause)
}

func (e *ParseError) Unwrap() []error { return []error{ErrConfig, e.Cause} }

// NewParseError wraps cause as a ParseError for path.
func NewParseError(path string, cause error) error {
	return &ParseError{Path: path, Cause: cause}
}

// Corruptf formats an error classified as ErrCorruption.
func Corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruption, fmt.Sprintf(format, args...))
}

// InvalidArgsf formats an error classified as ErrInvalidArgs.
func InvalidArgsf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgs, fmt.Sprintf(format, args...))
}
