// Package emit provides the structured statement builder both JS backends
// write through. Output is still text in a foreign target language, but
// holding it as an ordered line list keeps ordering invariants (runtime
// helpers before first use, imports before everything) enforceable and
// testable without string matching.
package emit

import (
	"fmt"
	"strings"
)

const indentWith = "  "

// Builder accumulates generated statements as an ordered line list with
// indent tracking.
type Builder struct {
	lines  []string
	indent int
}

// NewBuilder creates a new Builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Line appends one formatted line at the current indent
func (b *Builder) Line(format string, args ...interface{}) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	b.lines = append(b.lines, strings.Repeat(indentWith, b.indent)+text)
}

// Blank appends an empty line
func (b *Builder) Blank() {
	b.lines = append(b.lines, "")
}

// Raw appends pre-formatted text line by line, re-indenting each line to
// the current level
func (b *Builder) Raw(text string) {
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			b.lines = append(b.lines, "")
			continue
		}
		b.lines = append(b.lines, strings.Repeat(indentWith, b.indent)+line)
	}
}

// IncIndent increases the indent
func (b *Builder) IncIndent() {
	b.indent++
}

// DecIndent decreases the indent
func (b *Builder) DecIndent() {
	if b.indent > 0 {
		b.indent--
	}
}

// Len returns the number of lines emitted so far
func (b *Builder) Len() int {
	return len(b.lines)
}

// InsertAt inserts lines at position i, shifting later lines down. It is
// how a backend satisfies "helper before first use" after discovering,
// mid-walk, that a runtime helper is needed.
func (b *Builder) InsertAt(i int, lines ...string) {
	if i < 0 {
		i = 0
	}
	if i > len(b.lines) {
		i = len(b.lines)
	}
	out := make([]string, 0, len(b.lines)+len(lines))
	out = append(out, b.lines[:i]...)
	out = append(out, lines...)
	out = append(out, b.lines[i:]...)
	b.lines = out
}

// Lines returns a copy of the accumulated lines
func (b *Builder) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// String joins the accumulated lines into the final source text
func (b *Builder) String() string {
	return strings.Join(b.lines, "\n")
}
