// Package reactivity resolves reactive reads to their statically known
// values. Both generation backends call into it whenever an expression
// references a reactive cell or a derived cell; its output is textually
// deterministic, so artifacts can be snapshot-tested.
package reactivity

import (
	"fmt"
	"strings"

	"pulse-go/packages/compiler/src/ir"
)

// Scope holds the cell and prop declarations visible to the expressions of
// one compile unit.
type Scope struct {
	states  map[string]*ir.StateDecl
	derived map[string]*ir.DerivedDecl
	props   map[string]*ir.PropDecl

	// PropValues, when non-nil, switches prop references into full static
	// resolution: "props.name" becomes the caller-supplied value, or the
	// declared default when the caller omitted it. The resolved-markup
	// backend sets this; the other backends leave prop reads live.
	PropValues map[string]string
}

// NewScope creates a Scope over a component unit's declarations.
func NewScope(unit *ir.ComponentUnit) *Scope {
	s := &Scope{
		states:  map[string]*ir.StateDecl{},
		derived: map[string]*ir.DerivedDecl{},
		props:   map[string]*ir.PropDecl{},
	}
	for _, st := range unit.States {
		s.states[st.Name] = st
	}
	for _, d := range unit.Derived {
		s.derived[d.Name] = d
	}
	for _, p := range unit.Props {
		s.props[p.Name] = p
	}
	return s
}

// State returns the state declaration for name, or nil.
func (s *Scope) State(name string) *ir.StateDecl { return s.states[name] }

// DerivedCell returns the derived declaration for name, or nil.
func (s *Scope) DerivedCell(name string) *ir.DerivedDecl { return s.derived[name] }

// Prop returns the prop declaration for name, or nil.
func (s *Scope) Prop(name string) *ir.PropDecl { return s.props[name] }

// Substitute replaces every reactive-cell and derived-cell read in expr
// with its statically known value. Substituting the result again yields
// the same string.
func (s *Scope) Substitute(expr string) string {
	out := s.substitute(expr, map[string]bool{})
	if s.PropValues != nil {
		out = s.resolveProps(out)
	}
	return out
}

// InitialValue returns the initial-value expression for a reactive cell as
// the client module declares it: reads of other cells stay live (the
// declarations are in scope at that point), but a bare prop reference
// keeps the declared-default fallback so client and server initialize
// identically when the caller omits the prop.
func (s *Scope) InitialValue(st *ir.StateDecl) string {
	if propName, ok := propRef(st.Initial); ok {
		if p := s.props[propName]; p != nil && p.Default != "" {
			return fmt.Sprintf("(props.%s ?? %s)", propName, p.Default)
		}
	}
	return st.Initial
}

// HasCellRead reports whether expr reads any declared reactive or derived
// cell. The allocator uses this to decide dynamism; the compiler uses it
// for the dead-interactivity check.
func (s *Scope) HasCellRead(expr string) bool {
	for _, r := range scanReads(expr) {
		if r.member || r.callEnd < 0 {
			continue
		}
		name := expr[r.start:r.end]
		if s.states[name] != nil || s.derived[name] != nil {
			return true
		}
	}
	return false
}

// substitute performs one substitution pass. chain is the set of derived
// cells currently being expanded; it is copied, never mutated, so sibling
// expansions cannot observe each other (cycle-safe: a cell already in the
// chain is left as a bare read, outer-to-inner, first seen wins).
func (s *Scope) substitute(expr string, chain map[string]bool) string {
	var out strings.Builder
	last := 0

	for _, r := range scanReads(expr) {
		if r.member || r.callEnd < 0 {
			continue
		}
		name := expr[r.start:r.end]

		if st := s.states[name]; st != nil {
			if chain[name] {
				continue
			}
			out.WriteString(expr[last:r.start])
			out.WriteString(s.stateValue(st, withCell(chain, name)))
			last = r.callEnd
			continue
		}

		if d := s.derived[name]; d != nil {
			if chain[name] {
				// Already being expanded higher up the chain; truncate
				// deterministically rather than recurse forever.
				continue
			}
			out.WriteString(expr[last:r.start])
			out.WriteString(s.derivedValue(d, withCell(chain, name)))
			last = r.callEnd
			continue
		}
	}

	out.WriteString(expr[last:])
	return out.String()
}

// stateValue resolves a reactive-cell read to its initial value. When the
// initial value is a reference to a parent-supplied prop with a declared
// default, the substitution keeps the runtime-safe fallback so server and
// client agree even when the caller omits the prop.
func (s *Scope) stateValue(st *ir.StateDecl, chain map[string]bool) string {
	if propName, ok := propRef(st.Initial); ok {
		if p := s.props[propName]; p != nil && p.Default != "" {
			return fmt.Sprintf("(props.%s ?? %s)", propName, p.Default)
		}
		return st.Initial
	}
	value := s.substitute(st.Initial, chain)
	if atomic(value) {
		return value
	}
	return "(" + value + ")"
}

// derivedValue resolves a derived-cell read to its computation, with the
// reads inside the computation substituted first. A single-expression body
// is parenthesized; a multi-statement block becomes an immediately invoked
// closure so the result stays a valid sub-expression.
func (s *Scope) derivedValue(d *ir.DerivedDecl, chain map[string]bool) string {
	body := s.substitute(d.Body, chain)
	if d.IsBlock {
		return "(() => { " + body + " })()"
	}
	return "(" + body + ")"
}

// resolveProps replaces every "props.name" reference with the statically
// known prop value: the supplied value if present, else the declared
// default, else the undefined sentinel.
func (s *Scope) resolveProps(expr string) string {
	var out strings.Builder
	last := 0
	reads := scanReads(expr)

	for i, r := range reads {
		if r.member || expr[r.start:r.end] != "props" {
			continue
		}
		// The property name is the next read, directly after a dot.
		if i+1 >= len(reads) {
			continue
		}
		next := reads[i+1]
		if !next.member || trim(expr[r.end:next.start]) != "." {
			continue
		}
		name := expr[next.start:next.end]

		value, supplied := s.PropValues[name]
		if !supplied {
			if p := s.props[name]; p != nil && p.Default != "" {
				value = p.Default
			} else {
				value = "undefined"
			}
		}
		if !atomic(value) {
			value = "(" + value + ")"
		}

		out.WriteString(expr[last:r.start])
		out.WriteString(value)
		last = next.end
	}

	out.WriteString(expr[last:])
	return out.String()
}

// propRef reports whether expr is exactly a "props.name" reference.
func propRef(expr string) (string, bool) {
	t := trim(expr)
	if !strings.HasPrefix(t, "props.") {
		return "", false
	}
	name := t[len("props."):]
	if name == "" || !isIdentStart(name[0]) {
		return "", false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return "", false
		}
	}
	return name, true
}

// atomic reports whether value needs no parentheses when inlined into a
// larger expression: a bare literal, identifier chain, or quoted string.
func atomic(value string) bool {
	v := trim(value)
	if v == "" {
		return false
	}
	if v[0] == '\'' || v[0] == '"' || v[0] == '`' {
		// Only atomic when the whole value is one string literal.
		mask := codeMask(v)
		for i := 1; i < len(v)-1; i++ {
			if mask[i] {
				return false
			}
		}
		return v[len(v)-1] == v[0]
	}
	if v[0] == '(' && v[len(v)-1] == ')' {
		return true
	}
	for i := 0; i < len(v); i++ {
		if !isIdentPart(v[i]) && v[i] != '.' {
			return false
		}
	}
	return true
}

// withCell returns a copy of chain with name added. Copying keeps the
// guard set immutable from the caller's point of view, so expansion order
// stays deterministic across sibling branches.
func withCell(chain map[string]bool, name string) map[string]bool {
	next := make(map[string]bool, len(chain)+1)
	for k := range chain {
		next[k] = true
	}
	next[name] = true
	return next
}
