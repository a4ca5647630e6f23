package types

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Concrete errors wrap one of these so callers can
// classify failures with errors.Is.
var (
	// ErrConfiguration indicates a missing entry file or descriptor field
	ErrConfiguration = errors.New("configuration error")

	// ErrDependencyCycle indicates entry points importing each other in a cycle
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrCompilation indicates the compiler backend failed
	ErrCompilation = errors.New("compilation failed")

	// ErrBundling indicates the bundler failed
	ErrBundling = errors.New("bundling failed")

	// ErrMinification indicates the minifier failed
	ErrMinification = errors.New("minification failed")

	// ErrRemap indicates a source map could not be remapped
	ErrRemap = errors.New("sourcemap remap failed")

	// ErrFilesystem indicates a write or copy failure
	ErrFilesystem = errors.New("filesystem error")
)

// StageError attributes a failure to one stage of one entry point's pipeline
type StageError struct {
	Entry string
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	entry := e.Entry
	if entry == "" {
		entry = "<primary>"
	}
	return fmt.Sprintf("%s [%s/%s]: %v", e.Kind, entry, e.Stage, e.Err)
}

// Unwrap exposes both the kind and the underlying cause
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// NewStageError wraps err, or returns nil when err is nil
func NewStageError(ep *EntryPoint, stage string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Entry: ep.ID, Stage: stage, Kind: kind, Err: err}
}

// FilesystemError wraps a write or copy failure
func FilesystemError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s: %w", ErrFilesystem, op, path, err)
}
