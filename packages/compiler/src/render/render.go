// Package render is the preserving-expression backend: it emits a render
// function for a host server-rendering runtime. Expressions stay live
// (with reactive-cell reads substituted by their initial values, since the
// host's server pass has no live reactive system) and the hydration
// contract is injected so the client module can adopt the markup without a
// re-render.
//
// The Emitter is shared with the client backend, which reuses the loop
// item template and conditional branch rendering: server-rendered and
// client-rendered markup must be byte-identical for event delegation and
// span replacement to work.
package render

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"pulse-go/packages/compiler/src/allocate"
	"pulse-go/packages/compiler/src/hydration"
	"pulse-go/packages/compiler/src/ir"
	"pulse-go/packages/compiler/src/reactivity"
	"pulse-go/packages/compiler/src/util"
)

// IndexBinding is the private loop index name. The author's index
// parameter is renamed to it so compiler-introduced bindings can never
// collide with user code.
const IndexBinding = "__i"

// Generate emits the complete render module for one annotated unit.
func Generate(ann *allocate.Annotation) (string, error) {
	e := NewEmitter(ann.Unit, ann.Scope)
	body, err := e.Roots(ann.Unit.Roots)
	if err != nil {
		return "", err
	}

	b := newModuleBuilder()
	b.Line("export function render(props, $$scope, $$children) {")
	b.IncIndent()
	b.Line("return `%s`;", body)
	b.DecIndent()
	b.Line("}")
	b.Blank()
	b.Line("export default { render };")

	return b.finish(e), nil
}

// Emitter walks IR subtrees into template-literal markup.
type Emitter struct {
	unit  *ir.ComponentUnit
	scope *reactivity.Scope

	// live keeps cell reads unsubstituted. The client backend re-renders
	// these templates at runtime with the declared cells in scope, so the
	// reads must stay live; at initial render the live values equal the
	// substituted initial values, which keeps server and client markup
	// byte-identical.
	live bool

	// Helper usage discovered mid-walk; the module builder inserts the
	// helper definitions before the first statement that needs them.
	needAttrs bool
	needSlot  bool
}

// NewEmitter creates an Emitter for one unit.
func NewEmitter(unit *ir.ComponentUnit, scope *reactivity.Scope) *Emitter {
	return &Emitter{unit: unit, scope: scope}
}

// NewLiveEmitter creates an Emitter whose expressions keep live cell reads
// instead of substituted initial values.
func NewLiveEmitter(unit *ir.ComponentUnit, scope *reactivity.Scope) *Emitter {
	return &Emitter{unit: unit, scope: scope, live: true}
}

// NeedsAttrsHelper reports whether a walked template spreads attributes.
func (e *Emitter) NeedsAttrsHelper() bool { return e.needAttrs }

// NeedsSlotHelper reports whether a walked template renders pass-through
// children.
func (e *Emitter) NeedsSlotHelper() bool { return e.needSlot }

// loopCtx tracks the enclosing loop during a walk; nil outside loops.
type loopCtx struct {
	loop *ir.Loop
}

// Roots renders the unit's root nodes as one template-literal body.
func (e *Emitter) Roots(nodes []ir.Node) (string, error) {
	return e.children(nodes, nil)
}

// EmitNode renders one node and its whole subtree, outside any loop
// context. Adapters dispatch through this for the kinds they do not
// override.
func (e *Emitter) EmitNode(node ir.Node) (string, error) {
	return e.node(node, nil)
}

func (e *Emitter) children(nodes []ir.Node, lc *loopCtx) (string, error) {
	var out strings.Builder
	for _, node := range nodes {
		s, err := e.node(node, lc)
		if err != nil {
			return "", err
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

func (e *Emitter) node(node ir.Node, lc *loopCtx) (string, error) {
	switch n := node.(type) {
	case *ir.Text:
		return tmplEscape(html.EscapeString(n.Content)), nil

	case *ir.Expression:
		return "${" + e.expr(n.Expr, lc) + "}", nil

	case *ir.Element:
		return e.element(n, lc, false)

	case *ir.Conditional:
		return e.conditional(n, lc)

	case *ir.Loop:
		return e.loop(n, lc)

	case *ir.Component:
		return e.component(n, lc)

	case *ir.Fragment:
		return e.children(n.Children, lc)

	case *ir.Slot:
		e.needSlot = true
		return "${$$slot($$children)}", nil
	}

	return "", util.Errorf(e.unit.Name, "", "unknown node kind %v", node.Kind())
}

// expr substitutes cell reads (unless the emitter is live) and, inside a
// loop, renames the author's index parameter to the private binding.
func (e *Emitter) expr(expr string, lc *loopCtx) string {
	out := expr
	if !e.live {
		out = e.scope.Substitute(expr)
	}
	if lc != nil && lc.loop.IndexName != "" {
		out = reactivity.ReplaceIdent(out, lc.loop.IndexName, IndexBinding)
	}
	return out
}

func (e *Emitter) element(el *ir.Element, lc *loopCtx, itemRoot bool) (string, error) {
	var out strings.Builder
	out.WriteString("<")
	out.WriteString(el.Tag)

	if el.ScopeRoot && lc == nil {
		// Scope value is the runtime instance id handed to render();
		// inside a loop the per-item child generates its own scope.
		fmt.Fprintf(&out, " %s=\"${$$scope}\"", hydration.AttrScope)
	}

	if itemRoot {
		if lc.loop.KeyExpr != "" {
			fmt.Fprintf(&out, " %s=\"${%s}\"", hydration.AttrKey, e.expr(lc.loop.KeyExpr, lc))
		}
		fmt.Fprintf(&out, " %s=\"${%s}\"", hydration.AttrIndex, IndexBinding)
	}

	for _, attr := range el.Attrs {
		fmt.Fprintf(&out, " %s=\"%s\"", attr.Name, tmplEscape(html.EscapeString(attr.Value)))
	}
	for _, attr := range el.DynAttrs {
		value := e.expr(attr.Expr, lc)
		if hydration.BooleanAttr(attr.Name) {
			fmt.Fprintf(&out, "${(%s) ? ' %s' : ''}", value, attr.Name)
			continue
		}
		fmt.Fprintf(&out, " %s=\"${%s}\"", attr.Name, value)
	}
	for _, spread := range el.Spreads {
		e.needAttrs = true
		fmt.Fprintf(&out, "${$$attrs(%s)}", e.expr(spread, lc))
	}

	// The event identifier is emitted on the server pass too: delegation
	// requires server and client markup to agree byte for byte.
	for _, ev := range el.Events {
		fmt.Fprintf(&out, " %s=\"%s\"", hydration.AttrEvent, ev.ID)
	}

	if el.NeedsMarker {
		fmt.Fprintf(&out, " %s=\"%s\"", hydration.AttrSlot, el.MarkerID)
	}

	if voidElement(el.Tag) {
		out.WriteString(">")
		return out.String(), nil
	}
	out.WriteString(">")

	children, err := e.children(el.Children, lc)
	if err != nil {
		return "", err
	}
	out.WriteString(children)

	out.WriteString("</")
	out.WriteString(el.Tag)
	out.WriteString(">")
	return out.String(), nil
}

func (e *Emitter) conditional(cond *ir.Conditional, lc *loopCtx) (string, error) {
	condition := e.expr(cond.Condition, lc)

	whenTrue, err := e.Branch(cond, true, lc)
	if err != nil {
		return "", err
	}
	whenFalse, err := e.Branch(cond, false, lc)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("${(%s) ? `%s` : `%s`}", condition, whenTrue, whenFalse), nil
}

// Branch renders one conditional branch, including its hydration marker:
// single-element branches carry the marker attribute, everything else is
// wrapped in the start/end comment pair. Unmarked conditionals (no
// identifier) emit the branch bare.
func (e *Emitter) Branch(cond *ir.Conditional, whenTrue bool, lc *loopCtx) (string, error) {
	branch := cond.WhenFalse
	if whenTrue {
		branch = cond.WhenTrue
	}

	if cond.ID == "" {
		if branch == nil {
			return "", nil
		}
		return e.node(branch, lc)
	}

	if el, ok := branch.(*ir.Element); ok {
		rendered, err := e.element(el, lc, false)
		if err != nil {
			return "", err
		}
		// Tag the branch root with the conditional marker attribute.
		insert := fmt.Sprintf(" %s=\"%s\"", hydration.AttrCond, cond.ID)
		return rendered[:1+len(el.Tag)] + insert + rendered[1+len(el.Tag):], nil
	}

	inner := ""
	if branch != nil {
		var err error
		inner, err = e.node(branch, lc)
		if err != nil {
			return "", err
		}
	}
	return hydration.CondStart(cond.ID) + inner + hydration.CondEnd(cond.ID), nil
}

func (e *Emitter) loop(loop *ir.Loop, lc *loopCtx) (string, error) {
	item, err := e.ItemTemplate(loop)
	if err != nil {
		return "", err
	}
	// lc is the enclosing loop for a nested loop: its source may read the
	// outer item or index.
	return fmt.Sprintf("${(%s).map((%s, %s) => `%s`).join('')}",
		e.expr(loop.Source, lc), loop.ItemName, IndexBinding, item), nil
}

// ItemTemplate renders the per-item template of a loop, with the key and
// positional index attributes on the item root. The client backend embeds
// the same template in its list regeneration code.
func (e *Emitter) ItemTemplate(loop *ir.Loop) (string, error) {
	return e.element(loop.Template, &loopCtx{loop: loop}, true)
}

func (e *Emitter) component(comp *ir.Component, lc *loopCtx) (string, error) {
	var props []string
	for _, p := range comp.Props {
		props = append(props, fmt.Sprintf("%s: %s", p.Name, jsQuote(p.Value)))
	}
	for _, p := range comp.DynProps {
		// The host's server pass has no live handler target; handler
		// props are dropped and rebound by the client module.
		if handlerProp(p.Name, p.Expr) {
			continue
		}
		props = append(props, fmt.Sprintf("%s: (%s)", p.Name, e.expr(p.Expr, lc)))
	}
	var spreads []string
	for _, s := range comp.Spreads {
		spreads = append(spreads, fmt.Sprintf("...(%s)", e.expr(s, lc)))
	}

	propParts := append(spreads, props...)
	propsObj := "{" + strings.Join(propParts, ", ") + "}"

	scopeArg := e.componentScope(comp, lc)

	childrenArg := ""
	if len(comp.Children) > 0 {
		inner, err := e.children(comp.Children, lc)
		if err != nil {
			return "", err
		}
		if comp.LazyChildren {
			// Deferred children evaluate only when the child renders its
			// slot.
			childrenArg = fmt.Sprintf(", () => `%s`", inner)
		} else {
			childrenArg = fmt.Sprintf(", `%s`", inner)
		}
	}

	return fmt.Sprintf("${%s.render(%s, %s%s)}", comp.Name, propsObj, scopeArg, childrenArg), nil
}

// componentScope picks the instance id forwarded to a nested component:
// the unit's own scope when the component is the unit root, a per-item
// scope inside a loop, and a per-call-site scope otherwise.
func (e *Emitter) componentScope(comp *ir.Component, lc *loopCtx) string {
	if lc != nil {
		return fmt.Sprintf("`${$$scope}:%s:${%s}`", comp.ID, IndexBinding)
	}
	if len(e.unit.Roots) == 1 && e.unit.Roots[0] == ir.Node(comp) {
		return "$$scope"
	}
	return fmt.Sprintf("`${$$scope}:%s`", comp.ID)
}

// handlerProp reports whether a prop looks like an event handler: an
// onX-named prop or an arrow-function value.
func handlerProp(name, expr string) bool {
	if len(name) > 2 && name[0] == 'o' && name[1] == 'n' && name[2] >= 'A' && name[2] <= 'Z' {
		return true
	}
	return strings.Contains(expr, "=>")
}

// tmplEscape escapes static text for inclusion in a JS template literal.
func tmplEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

func jsQuote(s string) string {
	var out strings.Builder
	out.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'', '\\':
			out.WriteByte('\\')
			out.WriteByte(s[i])
		case '\n':
			out.WriteString("\\n")
		default:
			out.WriteByte(s[i])
		}
	}
	out.WriteByte('\'')
	return out.String()
}

// voidElement reports whether tag never takes children or a closing tag.
// https://html.spec.whatwg.org/#void-elements
func voidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "source", "track", "wbr":
		return true
	}
	return false
}
