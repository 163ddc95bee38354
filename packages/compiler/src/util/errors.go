package util

import (
	"fmt"
	"strings"
)

// CompileError represents a code generation failure for one component.
// It carries the component name and the slash-joined path of the offending
// node (e.g. "App/div[0]/li[2]") so batch callers can report precisely
// which component to skip while continuing with the rest of the batch.
type CompileError struct {
	Component string
	Path      string
	Msg       string
}

// NewCompileError creates a new CompileError
func NewCompileError(component, path, msg string) *CompileError {
	return &CompileError{
		Component: component,
		Path:      path,
		Msg:       msg,
	}
}

// Errorf creates a new CompileError with a formatted message
func Errorf(component, path, format string, args ...interface{}) *CompileError {
	return NewCompileError(component, path, fmt.Sprintf(format, args...))
}

// Error implements the error interface
func (e *CompileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Component, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Path, e.Msg)
}

// NodePath builds a node path string from path segments
func NodePath(segments []string) string {
	return strings.Join(segments, "/")
}
