// Package allocate decides, in a single pre-order walk, which nodes are
// dynamic and assigns their stable identifiers. Both generation backends
// consume the same annotated tree; hydration depends on them never
// disagreeing about dynamism or identifier values, so the decision is made
// exactly once, here.
package allocate

import (
	"fmt"

	"pulse-go/packages/compiler/src/ir"
	"pulse-go/packages/compiler/src/reactivity"
	"pulse-go/packages/compiler/src/util"
)

// Identifier prefixes are partitioned by role so no two roles collide even
// when their numeric suffixes match.
const (
	PrefixText        = "t"
	PrefixAttr        = "a"
	PrefixEvent       = "e"
	PrefixLoop        = "l"
	PrefixConditional = "c"
	PrefixComponent   = "k"
)

// TextPart is one run of a dynamic text slot: either static text or a live
// expression, never both.
type TextPart struct {
	Static string
	Expr   string
}

// TextSlot is an element whose text content depends on state.
type TextSlot struct {
	ID      string
	Element *ir.Element
	Parts   []TextPart
	Path    string
	DomPath []int
}

// AttrSlot is one state-dependent attribute on an element.
type AttrSlot struct {
	ID      string
	Element *ir.Element
	Attr    *ir.DynamicAttr
	Path    string
	DomPath []int
}

// HandlerTarget is one event binding on an interactive element. InLoop
// targets are reached through delegation on the loop container; the others
// are bound directly.
type HandlerTarget struct {
	ID      string
	Element *ir.Element
	Event   *ir.EventBinding
	Path    string
	DomPath []int
	InLoop  bool
	Loop    *ir.Loop
}

// LoopTarget is a loop together with its container element. The container
// must have the loop as its only child so list regeneration cannot clobber
// unrelated siblings.
type LoopTarget struct {
	ID        string
	Loop      *ir.Loop
	Container *ir.Element
	Path      string
	DomPath   []int
	nextEvent int
	// Handlers are the per-item event bindings, delegated from the
	// container. Their identifier sequence restarts at zero for every
	// loop because all items share one template.
	Handlers []*HandlerTarget
}

// CondTarget is a reactive conditional; non-reactive conditionals never
// appear here because they carry no identifier.
type CondTarget struct {
	ID   string
	Cond *ir.Conditional
	Path string
	// SingleTrue/SingleFalse select the marker strategy per branch: a
	// single-element branch carries the marker attribute, anything else
	// is wrapped in the start/end comment pair.
	SingleTrue  bool
	SingleFalse bool
}

// RefTarget is an element with an author-supplied ref callback.
type RefTarget struct {
	Element *ir.Element
	Path    string
	DomPath []int
}

// ComponentTarget is a nested component invocation.
type ComponentTarget struct {
	ID     string
	Comp   *ir.Component
	Path   string
	InLoop bool
	Loop   *ir.Loop
}

// Annotation is the result of one allocation walk: the tree with
// identifiers filled in, plus the flattened per-role lists the client
// backend generates from.
type Annotation struct {
	Unit  *ir.ComponentUnit
	Scope *reactivity.Scope

	TextSlots    []*TextSlot
	AttrSlots    []*AttrSlot
	Handlers     []*HandlerTarget
	Loops        []*LoopTarget
	Conditionals []*CondTarget
	Refs         []*RefTarget
	Components   []*ComponentTarget

	// Root is the scope-marked root element of an interactive unit.
	Root *ir.Element
}

// counters hold the per-role identifier sequences. They live on the
// allocator value, scoped to one compile call; never process-wide, so
// compiling components concurrently stays safe.
type counters struct {
	text, attr, event, loop, cond, comp int
}

type allocator struct {
	unit  *ir.ComponentUnit
	scope *reactivity.Scope
	ann   *Annotation
	n     counters
}

// walkCtx carries the walk position: the diagnostic path, the
// element-child index path from the nearest anchor, whether that path has
// been made unreliable by a preceding boundary sibling, and the enclosing
// loop, if any.
type walkCtx struct {
	path     []string
	domPath  []int
	unstable bool
	loop     *LoopTarget
}

// Annotate walks the unit pre-order, assigns identifiers to every dynamic
// node, and returns the flattened annotation both backends share.
func Annotate(unit *ir.ComponentUnit, scope *reactivity.Scope) (*Annotation, error) {
	a := &allocator{
		unit:  unit,
		scope: scope,
		ann:   &Annotation{Unit: unit, Scope: scope},
	}

	if unit.Interactive {
		root := unit.RootElement()
		if root == nil {
			return nil, util.NewCompileError(unit.Name, "",
				"an interactive component must have a single element root")
		}
		root.ScopeRoot = true
		a.ann.Root = root
	}

	if err := a.walkChildren(unit.Roots, walkCtx{}); err != nil {
		return nil, err
	}

	return a.ann, nil
}

func (a *allocator) walk(node ir.Node, ctx walkCtx) error {
	switch n := node.(type) {
	case *ir.Text, *ir.Expression, *ir.Slot:
		return nil

	case *ir.Element:
		return a.walkElement(n, ctx)

	case *ir.Conditional:
		return a.walkConditional(n, ctx)

	case *ir.Loop:
		return util.NewCompileError(a.unit.Name, util.NodePath(ctx.path),
			"a loop must be the only child of its container element")

	case *ir.Component:
		return a.walkComponent(n, ctx)

	case *ir.Fragment:
		return a.walkChildren(n.Children, ctx)
	}

	return util.Errorf(a.unit.Name, util.NodePath(ctx.path),
		"unknown node kind %v", node.Kind())
}

func (a *allocator) walkElement(el *ir.Element, ctx walkCtx) error {
	// A sole Loop child makes this element a list container.
	if len(el.Children) == 1 {
		if loop, ok := el.Children[0].(*ir.Loop); ok {
			return a.walkLoopContainer(el, loop, ctx)
		}
	}

	parts, isTextRun, err := a.textParts(el, ctx)
	if err != nil {
		return err
	}

	dynamic := false

	if isTextRun && ctx.loop == nil {
		el.TextID = fmt.Sprintf("%s%d", PrefixText, a.n.text)
		a.n.text++
		a.ann.TextSlots = append(a.ann.TextSlots, &TextSlot{
			ID:      el.TextID,
			Element: el,
			Parts:   parts,
			Path:    util.NodePath(ctx.path),
			DomPath: ctx.domPath,
		})
		dynamic = true
	}

	if ctx.loop == nil {
		for _, attr := range el.DynAttrs {
			attr.ID = fmt.Sprintf("%s%d", PrefixAttr, a.n.attr)
			a.n.attr++
			a.ann.AttrSlots = append(a.ann.AttrSlots, &AttrSlot{
				ID:      attr.ID,
				Element: el,
				Attr:    attr,
				Path:    util.NodePath(ctx.path),
				DomPath: ctx.domPath,
			})
			dynamic = true
		}
	}

	for _, ev := range el.Events {
		var id string
		if ctx.loop != nil {
			// Loop items render from one shared template, so the event
			// sequence restarts at zero per loop; the runtime
			// disambiguates items by positional index.
			id = fmt.Sprintf("%s%d", PrefixEvent, ctx.loop.eventSeq())
		} else {
			id = fmt.Sprintf("%s%d", PrefixEvent, a.n.event)
			a.n.event++
		}
		ev.ID = id
		target := &HandlerTarget{
			ID:      id,
			Element: el,
			Event:   ev,
			Path:    util.NodePath(ctx.path),
			DomPath: ctx.domPath,
			InLoop:  ctx.loop != nil,
		}
		if ctx.loop != nil {
			target.Loop = ctx.loop.Loop
			ctx.loop.Handlers = append(ctx.loop.Handlers, target)
		}
		a.ann.Handlers = append(a.ann.Handlers, target)
		dynamic = true
	}

	if el.Ref != "" {
		if ctx.loop != nil {
			return util.NewCompileError(a.unit.Name, util.NodePath(ctx.path),
				"ref callbacks are not supported inside loop templates")
		}
		a.ann.Refs = append(a.ann.Refs, &RefTarget{
			Element: el,
			Path:    util.NodePath(ctx.path),
			DomPath: ctx.domPath,
		})
		dynamic = true
	}

	if dynamic && ctx.unstable && ctx.loop == nil {
		el.NeedsMarker = true
		el.MarkerID = a.markerID(el)
	}

	if isTextRun {
		return nil
	}
	return a.walkChildren(el.Children, ctx)
}

// textParts decides whether el is a dynamic text slot. Expressions may
// only appear in elements whose children are a pure text/expression run:
// targeted updates go through textContent, which cannot spare sibling
// elements.
func (a *allocator) textParts(el *ir.Element, ctx walkCtx) ([]TextPart, bool, error) {
	hasExpr := false
	hasOther := false
	var parts []TextPart

	for _, child := range el.Children {
		switch c := child.(type) {
		case *ir.Text:
			parts = append(parts, TextPart{Static: c.Content})
		case *ir.Expression:
			parts = append(parts, TextPart{Expr: c.Expr})
			if c.IsDynamic || a.scope.HasCellRead(c.Expr) {
				hasExpr = true
			}
		default:
			hasOther = true
		}
	}

	if !hasExpr {
		return nil, false, nil
	}
	if hasOther {
		return nil, false, util.NewCompileError(a.unit.Name, util.NodePath(ctx.path),
			"dynamic text cannot be interleaved with element children")
	}
	return parts, true, nil
}

func (a *allocator) walkLoopContainer(el *ir.Element, loop *ir.Loop, ctx walkCtx) error {
	if loop.Template == nil {
		return util.NewCompileError(a.unit.Name, util.NodePath(ctx.path),
			"loop has no per-item template")
	}

	loop.ID = fmt.Sprintf("%s%d", PrefixLoop, a.n.loop)
	a.n.loop++

	target := &LoopTarget{
		ID:        loop.ID,
		Loop:      loop,
		Container: el,
		Path:      util.NodePath(ctx.path),
		DomPath:   ctx.domPath,
	}

	// A loop nested inside another loop's item template is regenerated as
	// part of the outer template; it gets no lookup, no marker and no
	// independent update of its own. Its target exists only so the event
	// sequence restarts inside its template.
	if ctx.loop == nil {
		if ctx.unstable {
			el.NeedsMarker = true
			el.MarkerID = loop.ID
		}
		a.ann.Loops = append(a.ann.Loops, target)

		// Container-level dynamic attributes are still ordinary attr slots.
		for _, attr := range el.DynAttrs {
			attr.ID = fmt.Sprintf("%s%d", PrefixAttr, a.n.attr)
			a.n.attr++
			a.ann.AttrSlots = append(a.ann.AttrSlots, &AttrSlot{
				ID:      attr.ID,
				Element: el,
				Attr:    attr,
				Path:    util.NodePath(ctx.path),
				DomPath: ctx.domPath,
			})
		}
	}

	itemCtx := walkCtx{
		path: appendPath(ctx.path, loop.Template, 0),
		loop: target,
	}
	return a.walkElement(loop.Template, itemCtx)
}

func (a *allocator) walkConditional(cond *ir.Conditional, ctx walkCtx) error {
	reactive := a.unit.Interactive && a.scope.HasCellRead(cond.Condition)

	if reactive && ctx.loop == nil {
		cond.ID = fmt.Sprintf("%s%d", PrefixConditional, a.n.cond)
		a.n.cond++
		a.ann.Conditionals = append(a.ann.Conditionals, &CondTarget{
			ID:          cond.ID,
			Cond:        cond,
			Path:        util.NodePath(ctx.path),
			SingleTrue:  singleElement(cond.WhenTrue),
			SingleFalse: singleElement(cond.WhenFalse),
		})
	}

	// Branch contents are walked with an unreliable path: which branch is
	// present, and how many nodes it renders, is unknowable statically.
	branchCtx := ctx
	branchCtx.unstable = true
	if cond.WhenTrue != nil {
		if err := a.walk(cond.WhenTrue, pushPath(branchCtx, "whenTrue")); err != nil {
			return err
		}
	}
	if cond.WhenFalse != nil {
		if err := a.walk(cond.WhenFalse, pushPath(branchCtx, "whenFalse")); err != nil {
			return err
		}
	}
	return nil
}

func (a *allocator) walkComponent(comp *ir.Component, ctx walkCtx) error {
	comp.ID = fmt.Sprintf("%s%d", PrefixComponent, a.n.comp)
	a.n.comp++

	target := &ComponentTarget{
		ID:     comp.ID,
		Comp:   comp,
		Path:   util.NodePath(ctx.path),
		InLoop: ctx.loop != nil,
	}
	if ctx.loop != nil {
		target.Loop = ctx.loop.Loop
	}
	a.ann.Components = append(a.ann.Components, target)

	// Pass-through children render inside the child component's own
	// markup, so their position bears no relation to their IR position;
	// they can only be found through markers.
	childCtx := ctx
	childCtx.unstable = true
	return a.walkChildren(comp.Children, childCtx)
}

// walkChildren iterates children, tracking the element-child index for
// DOM paths and flagging every sibling after a boundary node (component,
// conditional, loop or slot) as unreachable by relative navigation.
func (a *allocator) walkChildren(children []ir.Node, ctx walkCtx) error {
	elemIndex := 0
	unstable := ctx.unstable

	for _, child := range children {
		childC := ctx
		childC.unstable = unstable
		childC.path = appendPath(ctx.path, child, elemIndex)

		if el, ok := child.(*ir.Element); ok {
			childC.domPath = appendInts(ctx.domPath, elemIndex)
			elemIndex++
			if err := a.walkElement(el, childC); err != nil {
				return err
			}
			continue
		}

		if err := a.walk(child, childC); err != nil {
			return err
		}

		switch child.Kind() {
		case ir.KindComponent, ir.KindConditional, ir.KindLoop, ir.KindSlot:
			unstable = true
		}
	}
	return nil
}

// markerID picks the marker attribute value for an element: one of its
// existing role identifiers, or a fresh dynamic-text identifier for an
// element that is only dynamic through its ref callback.
func (a *allocator) markerID(el *ir.Element) string {
	if el.TextID != "" {
		return el.TextID
	}
	if len(el.DynAttrs) > 0 && el.DynAttrs[0].ID != "" {
		return el.DynAttrs[0].ID
	}
	if len(el.Events) > 0 && el.Events[0].ID != "" {
		return el.Events[0].ID
	}
	id := fmt.Sprintf("%s%d", PrefixText, a.n.text)
	a.n.text++
	return id
}

// eventSeq returns the next per-loop event ordinal.
func (t *LoopTarget) eventSeq() int {
	n := t.nextEvent
	t.nextEvent++
	return n
}

func singleElement(node ir.Node) bool {
	if node == nil {
		return false
	}
	_, ok := node.(*ir.Element)
	return ok
}

func pushPath(ctx walkCtx, segment string) walkCtx {
	out := ctx
	out.path = append(append([]string{}, ctx.path...), segment)
	return out
}

func appendPath(path []string, node ir.Node, elemIndex int) []string {
	var segment string
	switch n := node.(type) {
	case *ir.Element:
		segment = fmt.Sprintf("%s[%d]", n.Tag, elemIndex)
	case *ir.Component:
		segment = n.Name
	default:
		segment = node.Kind().String()
	}
	return append(append([]string{}, path...), segment)
}

func appendInts(path []int, i int) []int {
	return append(append([]int{}, path...), i)
}
