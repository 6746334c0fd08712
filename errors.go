package indexlib

import (
	"errors"

	"github.com/hupe1980/indexlib/status"
)

var (
	// ErrClosed is returned by operations on a closed table.
	ErrClosed = errors.New("indexlib: table is closed")

	// ErrInvalidArgs marks malformed or missing required arguments.
	ErrInvalidArgs = status.ErrInvalidArgs
	// ErrExist marks a first-writer-wins artifact that already exists.
	ErrExist = status.ErrExist
	// ErrNotFound marks a missing version, segment or resource.
	ErrNotFound = status.ErrNotFound
	// ErrCorruption marks structurally inconsistent persistent state.
	ErrCorruption = status.ErrCorruption
	// ErrConfig marks malformed serialized content.
	ErrConfig = status.ErrConfig
	// ErrInvalidPlan marks an index task plan without computable stages.
	ErrInvalidPlan = status.ErrInvalidPlan
)

// IsExist reports whether err means that a version or resource already
// exists. Callers racing to publish retry with a new id on it.
func IsExist(err error) bool { return status.IsExist(err) }

// IsNotFound reports whether err means that something is missing.
func IsNotFound(err error) bool { return status.IsNotFound(err) }
