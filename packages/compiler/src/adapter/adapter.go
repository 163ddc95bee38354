// Package adapter defines the contract between the compiler core and a
// host framework: an Adapter turns one annotated unit into the artifact
// the host serves, and a ScriptRegistry keeps each client module from
// being shipped more than once per request.
package adapter

import (
	"strings"

	"pulse-go/packages/compiler/src/allocate"
	"pulse-go/packages/compiler/src/emit"
	"pulse-go/packages/compiler/src/ir"
	"pulse-go/packages/compiler/src/render"
)

// Artifact is the output of one adapter run for one component unit.
type Artifact struct {
	// Template is the generated template or module text.
	Template string
	// Types is the optional companion type-declaration text; empty when
	// the host language has no use for one.
	Types string
	// Extension is the artifact's file extension, including the dot.
	Extension string
}

// Adapter generates a host artifact from one annotated unit.
type Adapter interface {
	Generate(ann *allocate.Annotation) (*Artifact, error)
}

// NodeHooks override rendering for single node kinds. A hook renders the
// node and its whole subtree; a nil hook falls through to the
// preserving-expression backend. Hooks apply where the adapter
// dispatches: at the unit roots and inside fragments. An element's
// subtree renders through the backend in one piece.
type NodeHooks struct {
	Element     func(el *ir.Element) (string, error)
	Expression  func(ex *ir.Expression) (string, error)
	Conditional func(c *ir.Conditional) (string, error)
	Loop        func(l *ir.Loop) (string, error)
	Component   func(c *ir.Component) (string, error)
	Fragment    func(f *ir.Fragment) (string, error)
}

// JS is the default adapter: it emits the render module for a JS host
// runtime, with every hook delegating to the preserving-expression
// backend.
type JS struct {
	Hooks NodeHooks
}

// NewJS creates the default JS adapter.
func NewJS() *JS { return &JS{} }

// Generate renders the unit into a JS render module.
func (a *JS) Generate(ann *allocate.Annotation) (*Artifact, error) {
	em := render.NewEmitter(ann.Unit, ann.Scope)

	var body strings.Builder
	for _, node := range ann.Unit.Roots {
		s, err := a.renderNode(em, node)
		if err != nil {
			return nil, err
		}
		body.WriteString(s)
	}

	b := emit.NewBuilder()
	b.Line(render.Header)
	b.Blank()
	helperAt := b.Len()
	b.Line("export function render(props, $$scope, $$children) {")
	b.IncIndent()
	b.Line("return `%s`;", body.String())
	b.DecIndent()
	b.Line("}")
	b.Blank()
	b.Line("export default { render };")

	var helpers []string
	if em.NeedsAttrsHelper() {
		helpers = append(helpers, render.AttrsHelper)
	}
	if em.NeedsSlotHelper() {
		helpers = append(helpers, render.SlotHelper)
	}
	if len(helpers) > 0 {
		helpers = append(helpers, "")
		b.InsertAt(helperAt, helpers...)
	}

	return &Artifact{Template: b.String(), Extension: ".js"}, nil
}

func (a *JS) renderNode(em *render.Emitter, node ir.Node) (string, error) {
	switch n := node.(type) {
	case *ir.Element:
		if a.Hooks.Element != nil {
			return a.Hooks.Element(n)
		}
	case *ir.Expression:
		if a.Hooks.Expression != nil {
			return a.Hooks.Expression(n)
		}
	case *ir.Conditional:
		if a.Hooks.Conditional != nil {
			return a.Hooks.Conditional(n)
		}
	case *ir.Loop:
		if a.Hooks.Loop != nil {
			return a.Hooks.Loop(n)
		}
	case *ir.Component:
		if a.Hooks.Component != nil {
			return a.Hooks.Component(n)
		}
	case *ir.Fragment:
		if a.Hooks.Fragment != nil {
			return a.Hooks.Fragment(n)
		}
		var out strings.Builder
		for _, child := range n.Children {
			s, err := a.renderNode(em, child)
			if err != nil {
				return "", err
			}
			out.WriteString(s)
		}
		return out.String(), nil
	}
	return em.EmitNode(node)
}

var _ Adapter = (*JS)(nil)
