// Package client is the client-update backend: it emits the module that
// adopts server-rendered markup and keeps it current as reactive cells
// change. The module declares every cell as a getter/setter pair whose
// setter triggers one update() pass; update() patches exactly the slots
// the allocator identified, through the same hydration contract the
// server backends emitted.
package client

import (
	"fmt"
	"strings"

	"pulse-go/packages/compiler/src/allocate"
	"pulse-go/packages/compiler/src/emit"
	"pulse-go/packages/compiler/src/hydration"
	"pulse-go/packages/compiler/src/ir"
	"pulse-go/packages/compiler/src/reactivity"
	"pulse-go/packages/compiler/src/render"
	"pulse-go/packages/compiler/src/util"
)

// Options configure client-module generation.
type Options struct {
	// Interactive reports whether a nested component has a client module
	// of its own and therefore needs an init call. Nil treats every
	// nested component as interactive.
	Interactive func(name string) bool
}

// Generate emits the client module for one annotated unit. The unit must
// be interactive: non-interactive units have no client module at all.
func Generate(ann *allocate.Annotation, opts Options) (string, error) {
	if ann.Root == nil {
		return "", util.NewCompileError(ann.Unit.Name, "",
			"a client module requires an interactive unit with an element root")
	}

	g := &generator{
		ann:   ann,
		unit:  ann.Unit,
		scope: ann.Scope,
		opts:  opts,
		em:    render.NewLiveEmitter(ann.Unit, ann.Scope),
	}
	return g.module()
}

type generator struct {
	ann   *allocate.Annotation
	unit  *ir.ComponentUnit
	scope *reactivity.Scope
	opts  Options
	em    *render.Emitter

	needCond      bool
	needReconcile bool
}

func (g *generator) module() (string, error) {
	b := emit.NewBuilder()
	b.Line(render.Header)
	b.Blank()

	children := g.childInits()
	if len(children) > 0 {
		seen := map[string]bool{}
		for _, ct := range children {
			if seen[ct.Comp.Name] {
				continue
			}
			seen[ct.Comp.Name] = true
			b.Line("import %s from './%s.client.js';", ct.Comp.Name, ct.Comp.Name)
		}
		b.Blank()
	}
	helperAt := b.Len()

	b.Line("export function init($$scope, props = {}) {")
	b.IncIndent()
	b.Line("const root = document.querySelector(`[%s=\"${$$scope}\"]`);", hydration.AttrScope)
	b.Line("if (!root) return;")
	b.Blank()

	g.cells(b)
	g.lookups(b)
	g.condState(b)

	if err := g.updateFn(b); err != nil {
		return "", err
	}

	if err := g.bindFn(b); err != nil {
		return "", err
	}
	g.directEvents(b)
	if err := g.delegatedEvents(b); err != nil {
		return "", err
	}
	g.refs(b)
	if err := g.initChildren(b, children); err != nil {
		return "", err
	}

	b.DecIndent()
	b.Line("}")
	b.Blank()
	b.Line("export default { init };")

	if g.em.NeedsSlotHelper() {
		return "", util.NewCompileError(g.unit.Name, "",
			"pass-through children cannot appear inside a reactive conditional or loop template")
	}

	var helpers []string
	if g.em.NeedsAttrsHelper() {
		helpers = append(helpers, render.AttrsHelper)
	}
	if g.needCond {
		helpers = append(helpers, condHelper)
	}
	if g.needReconcile {
		helpers = append(helpers, reconcileHelper)
	}
	if len(helpers) > 0 {
		helpers = append(helpers, "")
		b.InsertAt(helperAt, helpers...)
	}

	return b.String(), nil
}

// cells declares the reactive cells, derived cells and named handlers.
// Every setter ends in update(), which is the whole reactive system: no
// dependency tracking, one pass patches every slot.
func (g *generator) cells(b *emit.Builder) {
	for _, st := range g.unit.States {
		b.Line("let $$%s = %s;", st.Name, g.scope.InitialValue(st))
		b.Line("const %s = () => $$%s;", st.Name, st.Name)
		b.Line("const %s = (v) => { $$%s = v; update(); };", st.Setter, st.Name)
	}
	for _, d := range g.unit.Derived {
		if d.IsBlock {
			b.Line("const %s = () => { %s };", d.Name, d.Body)
		} else {
			b.Line("const %s = () => (%s);", d.Name, d.Body)
		}
	}
	for _, h := range g.unit.Handlers {
		g.handlerDecl(b, h)
	}
	if len(g.unit.States)+len(g.unit.Derived)+len(g.unit.Handlers) > 0 {
		b.Blank()
	}
}

// handlerDecl declares one named handler, rewriting a guarded-call body
// into an explicit if statement.
func (g *generator) handlerDecl(b *emit.Builder, h *ir.HandlerDecl) {
	body := strings.TrimSpace(h.Body)
	if !strings.ContainsAny(body, ";\n") {
		if guard, call, ok := reactivity.GuardedCall(body); ok {
			b.Line("const %s = (%s) => { if (%s) { %s; } };", h.Name, h.Params, guard, call)
			return
		}
		b.Line("const %s = (%s) => { %s; };", h.Name, h.Params, body)
		return
	}
	b.Line("const %s = (%s) => {", h.Name, h.Params)
	b.IncIndent()
	for _, line := range strings.Split(body, "\n") {
		b.Line("%s", strings.TrimSpace(line))
	}
	b.DecIndent()
	b.Line("};")
}

// lookups resolves each slot element once. Path-addressable elements are
// navigated by child index; marker-addressed loop containers and refs are
// queried once, while marker-addressed text and attribute slots are
// re-queried on every update pass because a conditional swap can replace
// them.
func (g *generator) lookups(b *emit.Builder) {
	n := 0
	for _, s := range g.ann.TextSlots {
		if !s.Element.NeedsMarker {
			b.Line("const %s = %s;", s.ID, pathExpr(s.DomPath))
			n++
		}
	}
	for _, s := range g.ann.AttrSlots {
		if !s.Element.NeedsMarker {
			b.Line("const %s = %s;", s.ID, pathExpr(s.DomPath))
			n++
		}
	}
	for _, h := range g.ann.Handlers {
		if !h.InLoop && !h.Element.NeedsMarker {
			b.Line("const %s = %s;", h.ID, pathExpr(h.DomPath))
			n++
		}
	}
	for _, lt := range g.ann.Loops {
		if lt.Container.NeedsMarker {
			b.Line("const %s = %s;", lt.ID, markerQuery(lt.Container.MarkerID))
		} else {
			b.Line("const %s = %s;", lt.ID, pathExpr(lt.DomPath))
		}
		n++
	}
	for i, r := range g.ann.Refs {
		if r.Element.NeedsMarker {
			b.Line("const $$r%d = %s;", i, markerQuery(r.Element.MarkerID))
		} else {
			b.Line("const $$r%d = %s;", i, pathExpr(r.DomPath))
		}
		n++
	}
	if n > 0 {
		b.Blank()
	}
}

// condState declares the last-rendered-branch flag per reactive
// conditional. Its initial value mirrors what the server rendered, so the
// first update pass swaps only if the condition has already changed.
func (g *generator) condState(b *emit.Builder) {
	for _, ct := range g.ann.Conditionals {
		b.Line("let $$%s = !!(%s);", ct.ID, ct.Cond.Condition)
	}
	if len(g.ann.Conditionals) > 0 {
		b.Blank()
	}
}

// updateFn emits the single update() pass: conditional swaps first (so a
// freshly inserted branch exists before marker re-queries), then list
// regeneration, then text and attribute patches.
func (g *generator) updateFn(b *emit.Builder) error {
	b.Line("function update() {")
	b.IncIndent()

	for _, ct := range g.ann.Conditionals {
		if err := g.condPatch(b, ct); err != nil {
			return err
		}
	}
	for _, lt := range g.ann.Loops {
		if err := g.loopPatch(b, lt); err != nil {
			return err
		}
	}
	for _, s := range g.ann.TextSlots {
		g.withTarget(b, s.Element, s.ID, func(ref string) {
			b.Line("%s.textContent = %s;", ref, textExpr(s.Parts))
		})
	}
	for _, s := range g.ann.AttrSlots {
		g.withTarget(b, s.Element, s.ID, func(ref string) {
			g.attrPatch(b, ref, s.Attr)
		})
	}
	if g.hasMarkerHandlers() {
		b.Line("$$bind();")
	}

	b.DecIndent()
	b.Line("}")
	b.Blank()
	return nil
}

// withTarget runs fn against the slot element: directly for a
// path-addressed element, inside a fresh query and null guard for a
// marker-addressed one (the element is absent while the other branch of
// its conditional is rendered).
func (g *generator) withTarget(b *emit.Builder, el *ir.Element, stable string, fn func(ref string)) {
	if !el.NeedsMarker {
		fn(stable)
		return
	}
	b.Line("{")
	b.IncIndent()
	b.Line("const $$el = %s;", markerQuery(el.MarkerID))
	b.Line("if ($$el) {")
	b.IncIndent()
	fn("$$el")
	b.DecIndent()
	b.Line("}")
	b.DecIndent()
	b.Line("}")
}

// attrPatch emits the patch statement for one dynamic attribute. class and
// style have dedicated forms, boolean attributes are assigned as
// properties, and everything else goes through set/removeAttribute with
// undefined as the absent-value sentinel.
func (g *generator) attrPatch(b *emit.Builder, ref string, attr *ir.DynamicAttr) {
	expr := "(" + attr.Expr + ")"
	switch {
	case attr.Name == "class" || attr.Name == "className":
		b.Line("%s.setAttribute('class', %s);", ref, expr)
	case attr.Name == "style":
		if strings.HasPrefix(strings.TrimSpace(attr.Expr), "{") {
			b.Line("Object.assign(%s.style, %s);", ref, expr)
		} else {
			b.Line("%s.style.cssText = %s;", ref, expr)
		}
	case hydration.BooleanAttr(attr.Name):
		b.Line("%s.%s = !!%s;", ref, hydration.BooleanProp(attr.Name), expr)
	case attr.Name == "value":
		b.Line("{")
		b.IncIndent()
		b.Line("const $$v = %s;", expr)
		b.Line("if ($$v === undefined) %s.removeAttribute('value');", ref)
		b.Line("else %s.value = $$v;", ref)
		b.DecIndent()
		b.Line("}")
	default:
		b.Line("{")
		b.IncIndent()
		b.Line("const $$v = %s;", expr)
		b.Line("if ($$v === undefined) %s.removeAttribute('%s');", ref, attr.Name)
		b.Line("else %s.setAttribute('%s', $$v);", ref, attr.Name)
		b.DecIndent()
		b.Line("}")
	}
}

// condPatch swaps a conditional span when its condition flips. Both branch
// templates are re-rendered live, so the inserted branch carries current
// cell values.
func (g *generator) condPatch(b *emit.Builder, ct *allocate.CondTarget) error {
	whenTrue, err := g.em.Branch(ct.Cond, true, nil)
	if err != nil {
		return err
	}
	whenFalse, err := g.em.Branch(ct.Cond, false, nil)
	if err != nil {
		return err
	}
	g.needCond = true

	b.Line("{")
	b.IncIndent()
	b.Line("const $$v = !!(%s);", ct.Cond.Condition)
	b.Line("if ($$v !== $$%s) {", ct.ID)
	b.IncIndent()
	b.Line("$$%s = $$v;", ct.ID)
	b.Line("$$cond(root, '%s', $$v ? `%s` : `%s`);", ct.ID, whenTrue, whenFalse)
	b.DecIndent()
	b.Line("}")
	b.DecIndent()
	b.Line("}")
	return nil
}

// loopPatch regenerates a list from its live source array. A keyed loop
// reconciles against the existing items; an unkeyed one rewrites the
// container's markup wholesale.
func (g *generator) loopPatch(b *emit.Builder, lt *allocate.LoopTarget) error {
	item, err := g.em.ItemTemplate(lt.Loop)
	if err != nil {
		return err
	}
	loop := lt.Loop

	emitBody := func(ref string) {
		if loop.KeyExpr != "" {
			g.needReconcile = true
			key := loop.KeyExpr
			if loop.IndexName != "" {
				key = reactivity.ReplaceIdent(key, loop.IndexName, render.IndexBinding)
			}
			b.Line("$$reconcile(%s, (%s), (%s, %s) => `%s`, (%s, %s) => (%s));",
				ref, loop.Source, loop.ItemName, render.IndexBinding, item,
				loop.ItemName, render.IndexBinding, key)
			return
		}
		b.Line("%s.innerHTML = (%s).map((%s, %s) => `%s`).join('');",
			ref, loop.Source, loop.ItemName, render.IndexBinding, item)
	}

	if lt.Container.NeedsMarker {
		b.Line("if (%s) {", lt.ID)
		b.IncIndent()
		emitBody(lt.ID)
		b.DecIndent()
		b.Line("}")
	} else {
		emitBody(lt.ID)
	}
	return nil
}

// bindFn declares $$bind, which (re)binds handlers on marker-addressed
// elements. It runs once at init and again at the end of every update
// pass, because a conditional swap replaces those elements. Assigning the
// on-property is idempotent, so rebinding an unchanged element is safe.
func (g *generator) bindFn(b *emit.Builder) error {
	if !g.hasMarkerHandlers() {
		return nil
	}
	b.Line("const $$bind = () => {")
	b.IncIndent()
	for _, h := range g.ann.Handlers {
		if h.InLoop || !h.Element.NeedsMarker {
			continue
		}
		b.Line("const $$%s = %s;", h.ID, markerQuery(h.Element.MarkerID))
		b.Line("if ($$%s) $$%s.on%s = %s;", h.ID, h.ID, h.Event.Event, g.handlerFn(h.Event.Handler))
	}
	b.DecIndent()
	b.Line("};")
	b.Line("$$bind();")
	b.Blank()
	return nil
}

func (g *generator) hasMarkerHandlers() bool {
	for _, h := range g.ann.Handlers {
		if !h.InLoop && h.Element.NeedsMarker {
			return true
		}
	}
	return false
}

// directEvents binds each non-loop handler straight onto its element.
func (g *generator) directEvents(b *emit.Builder) {
	n := 0
	for _, h := range g.ann.Handlers {
		if h.InLoop || h.Element.NeedsMarker {
			continue
		}
		b.Line("%s.on%s = %s;", h.ID, h.Event.Event, g.handlerFn(h.Event.Handler))
		n++
	}
	if n > 0 {
		b.Blank()
	}
}

// delegatedEvents installs one listener per event type on each loop
// container. Loop items share one template, so the handler is resolved by
// event identifier and the item by its positional index attribute; the
// focus family does not bubble and is delegated with capture.
func (g *generator) delegatedEvents(b *emit.Builder) error {
	for _, lt := range g.ann.Loops {
		byEvent := map[string][]*allocate.HandlerTarget{}
		var order []string
		for _, h := range lt.Handlers {
			if _, seen := byEvent[h.Event.Event]; !seen {
				order = append(order, h.Event.Event)
			}
			byEvent[h.Event.Event] = append(byEvent[h.Event.Event], h)
		}
		if len(order) == 0 {
			continue
		}

		guard := lt.Container.NeedsMarker
		if guard {
			b.Line("if (%s) {", lt.ID)
			b.IncIndent()
		}
		for _, event := range order {
			g.delegatedListener(b, lt, event, byEvent[event])
		}
		if guard {
			b.DecIndent()
			b.Line("}")
		}
		b.Blank()
	}
	return nil
}

func (g *generator) delegatedListener(b *emit.Builder, lt *allocate.LoopTarget, event string, targets []*allocate.HandlerTarget) {
	capture := "false"
	if hydration.FocusFamily(event) {
		capture = "true"
	}
	loop := lt.Loop

	b.Line("%s.addEventListener('%s', ($$event) => {", lt.ID, event)
	b.IncIndent()
	b.Line("let $$target;")
	for _, h := range targets {
		b.Line("$$target = $$event.target.closest('[%s=\"%s\"]');", hydration.AttrEvent, h.ID)
		b.Line("if ($$target && %s.contains($$target)) {", lt.ID)
		b.IncIndent()
		b.Line("const %s = Number($$target.closest('[%s]').getAttribute('%s'));",
			render.IndexBinding, hydration.AttrIndex, hydration.AttrIndex)
		if loop.ItemName != "" {
			b.Line("const %s = (%s)[%s];", loop.ItemName, loop.Source, render.IndexBinding)
		}
		handler := h.Event.Handler
		if loop.IndexName != "" {
			handler = reactivity.ReplaceIdent(handler, loop.IndexName, render.IndexBinding)
		}
		b.Line("(%s)($$event);", g.handlerFn(handler))
		b.Line("return;")
		b.DecIndent()
		b.Line("}")
	}
	b.DecIndent()
	b.Line("}, %s);", capture)
}

// refs invokes each ref callback exactly once, at attach.
func (g *generator) refs(b *emit.Builder) {
	for i, r := range g.ann.Refs {
		if r.Element.NeedsMarker {
			b.Line("if ($$r%d) (%s)($$r%d);", i, r.Element.Ref, i)
		} else {
			b.Line("(%s)($$r%d);", r.Element.Ref, i)
		}
	}
	if len(g.ann.Refs) > 0 {
		b.Blank()
	}
}

// childInits lists the nested components that compile to client modules
// of their own.
func (g *generator) childInits() []*allocate.ComponentTarget {
	var out []*allocate.ComponentTarget
	for _, ct := range g.ann.Components {
		if g.opts.Interactive != nil && !g.opts.Interactive(ct.Comp.Name) {
			continue
		}
		out = append(out, ct)
	}
	return out
}

// initChildren calls init on every interactive nested component, with the
// same per-call-site instance scope the server backends rendered. A child
// inside a currently absent conditional branch finds no root element and
// returns without effect.
func (g *generator) initChildren(b *emit.Builder, children []*allocate.ComponentTarget) error {
	for _, ct := range children {
		props := g.childProps(ct)
		if ct.InLoop {
			loop := ct.Loop
			b.Line("(%s).forEach((%s, %s) => {", loop.Source, loop.ItemName, render.IndexBinding)
			b.IncIndent()
			b.Line("%s.init(`${$$scope}:%s:${%s}`, %s);", ct.Comp.Name, ct.ID, render.IndexBinding, props)
			b.DecIndent()
			b.Line("});")
			continue
		}
		b.Line("%s.init(`${$$scope}:%s`, %s);", ct.Comp.Name, ct.ID, props)
	}
	return nil
}

// childProps serializes the prop object for a nested init call. Callback
// props are wrapped so invoking them also runs the parent's update pass;
// other function-valued props cannot cross the init boundary and are
// dropped (the server backends already dropped them from render calls).
func (g *generator) childProps(ct *allocate.ComponentTarget) string {
	comp := ct.Comp
	var parts []string
	for _, s := range comp.Spreads {
		parts = append(parts, "...("+g.itemExpr(s, ct)+")")
	}
	for _, p := range comp.Props {
		parts = append(parts, p.Name+": "+jsQuote(p.Value))
	}
	for _, p := range comp.DynProps {
		expr := g.itemExpr(p.Expr, ct)
		if callbackProp(p.Name) {
			parts = append(parts, fmt.Sprintf("%s: (...args) => { (%s)(...args); update(); }", p.Name, expr))
			continue
		}
		if strings.Contains(expr, "=>") {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: (%s)", p.Name, expr))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// itemExpr renames the author's loop index to the private binding when the
// expression is evaluated inside a loop body.
func (g *generator) itemExpr(expr string, ct *allocate.ComponentTarget) string {
	if ct.InLoop && ct.Loop.IndexName != "" {
		return reactivity.ReplaceIdent(expr, ct.Loop.IndexName, render.IndexBinding)
	}
	return expr
}

// handlerFn turns a handler expression into the function value to bind. A
// bare name stays a reference; an arrow function with a guarded-call body
// is rewritten into an explicit if statement so the guard reads as
// control flow, not as an expression result.
func (g *generator) handlerFn(expr string) string {
	e := strings.TrimSpace(expr)
	if isIdent(e) {
		return e
	}
	params, body, ok := reactivity.SplitArrow(e)
	if !ok {
		return "(" + e + ")"
	}
	if !strings.HasPrefix(params, "(") {
		params = "(" + params + ")"
	}
	if strings.HasPrefix(body, "{") {
		return params + " => " + body
	}
	if guard, call, ok := reactivity.GuardedCall(body); ok {
		return fmt.Sprintf("%s => { if (%s) { %s; } }", params, guard, call)
	}
	return params + " => " + body
}

// callbackProp reports whether a prop name follows the on-prefixed
// callback convention.
func callbackProp(name string) bool {
	return len(name) > 2 && name[0] == 'o' && name[1] == 'n' &&
		name[2] >= 'A' && name[2] <= 'Z'
}

func isIdent(s string) bool {
	if s == "" || !isIdentByte(s[0], true) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentByte(s[i], false) {
			return false
		}
	}
	return true
}

func isIdentByte(ch byte, start bool) bool {
	if ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		return true
	}
	return !start && ch >= '0' && ch <= '9'
}

// pathExpr navigates from the component root by element-child indexes.
// The first index is the root itself.
func pathExpr(dom []int) string {
	out := "root"
	for _, i := range dom[1:] {
		out += fmt.Sprintf(".children[%d]", i)
	}
	return out
}

func markerQuery(id string) string {
	return fmt.Sprintf("root.querySelector('[%s=\"%s\"]')", hydration.AttrSlot, id)
}

// textExpr builds the textContent expression for a dynamic text slot.
func textExpr(parts []allocate.TextPart) string {
	if len(parts) == 1 && parts[0].Expr != "" {
		return "(" + parts[0].Expr + ")"
	}
	var segs []string
	for _, p := range parts {
		if p.Expr != "" {
			segs = append(segs, "String("+p.Expr+")")
		} else {
			segs = append(segs, jsQuote(p.Static))
		}
	}
	return strings.Join(segs, " + ")
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
