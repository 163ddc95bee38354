// Package markup is the resolved-markup backend: it evaluates the IR to
// static, fully-resolved output for non-interactive contexts. No
// expression survives into the output and no hydration marker is emitted;
// interactive content belongs to the render and client backends instead.
//
// Emission goes through gomponents nodes rather than raw string writes, so
// attribute escaping, void elements and boolean-attribute presence
// semantics follow the library instead of hand-rolled tables.
package markup

import (
	"io"
	"strings"

	g "maragu.dev/gomponents"

	"pulse-go/packages/compiler/src/hydration"
	"pulse-go/packages/compiler/src/ir"
	"pulse-go/packages/compiler/src/reactivity"
	"pulse-go/packages/compiler/src/util"
)

// Options configures static generation.
type Options struct {
	// Resolver maps a component name to its compile unit so nested
	// invocations can be inlined. When nil, any Component node is an
	// error.
	Resolver func(name string) (*ir.ComponentUnit, error)
}

// Generate walks the unit and returns fully-resolved markup text.
func Generate(unit *ir.ComponentUnit, scope *reactivity.Scope, opts Options) (string, error) {
	gen := &generator{
		unit:  unit,
		scope: scope,
		opts:  opts,
		stack: map[string]bool{unit.Name: true},
	}
	nodes, err := gen.nodes(unit.Roots)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, node := range nodes {
		if err := node.Render(&out); err != nil {
			return "", util.Errorf(unit.Name, "", "rendering markup: %v", err)
		}
	}
	return out.String(), nil
}

type generator struct {
	unit  *ir.ComponentUnit
	scope *reactivity.Scope
	opts  Options
	// slotChildren is the pre-rendered pass-through content for the unit
	// currently being generated, already evaluated in its parent's scope.
	slotChildren []g.Node
	// stack guards against component invocation cycles.
	stack map[string]bool
}

// seq renders a node sequence without a wrapping element.
type seq []g.Node

// Render implements gomponents.Node
func (s seq) Render(w io.Writer) error {
	for _, n := range s {
		if err := n.Render(w); err != nil {
			return err
		}
	}
	return nil
}

func (gen *generator) nodes(nodes []ir.Node) ([]g.Node, error) {
	out := make([]g.Node, 0, len(nodes))
	for _, node := range nodes {
		rendered, err := gen.node(node)
		if err != nil {
			return nil, err
		}
		if rendered != nil {
			out = append(out, rendered)
		}
	}
	return out, nil
}

func (gen *generator) node(node ir.Node) (g.Node, error) {
	switch n := node.(type) {
	case *ir.Text:
		return g.Text(n.Content), nil

	case *ir.Expression:
		return gen.expression(n)

	case *ir.Element:
		return gen.element(n)

	case *ir.Conditional:
		return gen.conditional(n)

	case *ir.Loop:
		// Arrays are runtime data; a statically resolvable list does not
		// exist. Interactive contexts render lists live instead.
		return nil, util.NewCompileError(gen.unit.Name, "",
			"loops cannot be resolved in a static markup context")

	case *ir.Component:
		return gen.component(n)

	case *ir.Fragment:
		children, err := gen.nodes(n.Children)
		if err != nil {
			return nil, err
		}
		return seq(children), nil

	case *ir.Slot:
		return seq(gen.slotChildren), nil
	}

	return nil, util.Errorf(gen.unit.Name, "", "unknown node kind %v", node.Kind())
}

func (gen *generator) expression(expr *ir.Expression) (g.Node, error) {
	value, err := gen.eval(expr.Expr)
	if err != nil {
		return nil, err
	}
	if value.Absent() {
		return nil, nil
	}
	return g.Text(value.Text()), nil
}

func (gen *generator) element(el *ir.Element) (g.Node, error) {
	if len(el.Events) > 0 {
		return nil, util.NewCompileError(gen.unit.Name, el.Tag,
			"event bindings cannot appear in a static markup context")
	}
	if len(el.Spreads) > 0 {
		return nil, util.NewCompileError(gen.unit.Name, el.Tag,
			"spread attributes cannot be resolved in a static markup context")
	}

	var args []g.Node
	for _, attr := range el.Attrs {
		args = append(args, g.Attr(attr.Name, attr.Value))
	}
	for _, attr := range el.DynAttrs {
		node, err := gen.attr(attr)
		if err != nil {
			return nil, err
		}
		if node != nil {
			args = append(args, node)
		}
	}

	children, err := gen.nodes(el.Children)
	if err != nil {
		return nil, err
	}
	args = append(args, children...)

	return g.El(el.Tag, args...), nil
}

func (gen *generator) attr(attr *ir.DynamicAttr) (g.Node, error) {
	value, err := gen.eval(attr.Expr)
	if err != nil {
		return nil, err
	}
	if hydration.BooleanAttr(attr.Name) {
		// Presence/absence semantics: emitted only when truthy.
		if value.Truthy() {
			return g.Attr(attr.Name), nil
		}
		return nil, nil
	}
	if value.Absent() {
		return nil, nil
	}
	return g.Attr(attr.Name, value.Text()), nil
}

func (gen *generator) conditional(cond *ir.Conditional) (g.Node, error) {
	if cond.ID != "" {
		return nil, util.NewCompileError(gen.unit.Name, "",
			"a reactive conditional cannot be resolved in a static markup context")
	}
	value, err := gen.eval(cond.Condition)
	if err != nil {
		return nil, err
	}
	branch := cond.WhenFalse
	if value.Truthy() {
		branch = cond.WhenTrue
	}
	if branch == nil {
		return nil, nil
	}
	return gen.node(branch)
}

func (gen *generator) component(comp *ir.Component) (g.Node, error) {
	if gen.opts.Resolver == nil {
		return nil, util.Errorf(gen.unit.Name, comp.Name,
			"unresolvable component reference %q", comp.Name)
	}
	if gen.stack[comp.Name] {
		return nil, util.Errorf(gen.unit.Name, comp.Name,
			"component reference cycle through %q", comp.Name)
	}
	child, err := gen.opts.Resolver(comp.Name)
	if err != nil || child == nil {
		return nil, util.Errorf(gen.unit.Name, comp.Name,
			"unresolvable component reference %q", comp.Name)
	}

	// Slot content is evaluated in the parent's scope before descending.
	slotChildren, err := gen.nodes(comp.Children)
	if err != nil {
		return nil, err
	}

	childScope := reactivity.NewScope(child)
	childScope.PropValues = map[string]string{}
	for _, prop := range comp.Props {
		childScope.PropValues[prop.Name] = jsQuote(prop.Value)
	}
	for _, prop := range comp.DynProps {
		childScope.PropValues[prop.Name] = gen.scope.Substitute(prop.Expr)
	}
	if len(comp.Spreads) > 0 {
		return nil, util.Errorf(gen.unit.Name, comp.Name,
			"spread props cannot be resolved in a static markup context")
	}

	childGen := &generator{
		unit:         child,
		scope:        childScope,
		opts:         gen.opts,
		slotChildren: slotChildren,
		stack:        withName(gen.stack, comp.Name),
	}
	children, err := childGen.nodes(child.Roots)
	if err != nil {
		return nil, err
	}
	return seq(children), nil
}

func (gen *generator) eval(expr string) (Value, error) {
	substituted := gen.scope.Substitute(expr)
	value, err := Eval(substituted)
	if err != nil {
		return Value{}, util.Errorf(gen.unit.Name, "",
			"expression %q does not resolve statically: %v", expr, err)
	}
	return value, nil
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

func withName(stack map[string]bool, name string) map[string]bool {
	next := make(map[string]bool, len(stack)+1)
	for k := range stack {
		next[k] = true
	}
	next[name] = true
	return next
}
