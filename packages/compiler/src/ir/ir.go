// Package ir defines the intermediate representation shared by every
// backend. The node set is closed: a backend switching over NodeKind (or
// implementing Visitor) is forced to handle all eight kinds, so adding a
// kind is a compile-checked obligation across the whole compiler.
package ir

// NodeKind identifies one of the closed set of IR node kinds.
type NodeKind int

const (
	KindText NodeKind = iota
	KindExpression
	KindElement
	KindConditional
	KindLoop
	KindComponent
	KindFragment
	KindSlot
)

// String returns the kind name
func (k NodeKind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindExpression:
		return "Expression"
	case KindElement:
		return "Element"
	case KindConditional:
		return "Conditional"
	case KindLoop:
		return "Loop"
	case KindComponent:
		return "Component"
	case KindFragment:
		return "Fragment"
	case KindSlot:
		return "Slot"
	}
	return "Unknown"
}

// Node represents a node in the IR tree
type Node interface {
	Kind() NodeKind
	Visit(v Visitor) (interface{}, error)
}

// Text represents static textual content
type Text struct {
	Content string `json:"content"`
}

// NewText creates a new Text node
func NewText(content string) *Text {
	return &Text{Content: content}
}

// Kind returns the node kind
func (t *Text) Kind() NodeKind { return KindText }

// Visit visits the node with a visitor
func (t *Text) Visit(v Visitor) (interface{}, error) { return v.VisitText(t) }

// Expression represents an embedded value expression
type Expression struct {
	Expr string `json:"expr"`
	// IsDynamic is true when the expression reads a reactive or derived
	// cell and therefore needs a slot identifier on its host element.
	IsDynamic bool `json:"isDynamic"`
}

// NewExpression creates a new Expression node
func NewExpression(expr string, isDynamic bool) *Expression {
	return &Expression{Expr: expr, IsDynamic: isDynamic}
}

// Kind returns the node kind
func (e *Expression) Kind() NodeKind { return KindExpression }

// Visit visits the node with a visitor
func (e *Expression) Visit(v Visitor) (interface{}, error) { return v.VisitExpression(e) }

// StaticAttr represents an attribute whose value is known at compile time
type StaticAttr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DynamicAttr represents an attribute whose value depends on state. The
// allocator assigns ID; it is empty until then.
type DynamicAttr struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
	ID   string `json:"-"`
}

// EventBinding represents one event handler on an element. The allocator
// assigns ID; it is empty until then.
type EventBinding struct {
	Event   string `json:"event"`
	Handler string `json:"handler"`
	ID      string `json:"-"`
}

// Element represents a markup element
type Element struct {
	Tag      string          `json:"tag"`
	Attrs    []*StaticAttr   `json:"attrs,omitempty"`
	DynAttrs []*DynamicAttr  `json:"dynAttrs,omitempty"`
	Spreads  []string        `json:"spreads,omitempty"`
	Ref      string          `json:"ref,omitempty"`
	Events   []*EventBinding `json:"events,omitempty"`
	Children []Node          `json:"-"`

	// TextID is the dynamic-text slot identifier, assigned by the
	// allocator when the element's children are a text/expression run
	// containing at least one dynamic expression.
	TextID string `json:"-"`
	// NeedsMarker is set by the allocator when the element cannot be
	// reached by relative-path DOM navigation from the component root
	// and must carry a discoverable marker attribute instead.
	NeedsMarker bool `json:"-"`
	// MarkerID is the value of the marker attribute when NeedsMarker is
	// set; it reuses one of the element's role identifiers.
	MarkerID string `json:"-"`
	// ScopeRoot is set by the allocator on the root element of an
	// interactive component. The scope marker value is a runtime
	// instance id, never a compile-time constant.
	ScopeRoot bool `json:"-"`
}

// NewElement creates a new Element node
func NewElement(tag string, children ...Node) *Element {
	return &Element{Tag: tag, Children: children}
}

// Kind returns the node kind
func (e *Element) Kind() NodeKind { return KindElement }

// Visit visits the node with a visitor
func (e *Element) Visit(v Visitor) (interface{}, error) { return v.VisitElement(e) }

// Conditional represents a binary branch. An absent ID means the allocator
// proved the condition non-reactive: it is evaluated once at initial render
// and needs no hydration marker.
type Conditional struct {
	Condition string `json:"condition"`
	WhenTrue  Node   `json:"-"`
	WhenFalse Node   `json:"-"`
	ID        string `json:"-"`
}

// NewConditional creates a new Conditional node
func NewConditional(condition string, whenTrue, whenFalse Node) *Conditional {
	return &Conditional{Condition: condition, WhenTrue: whenTrue, WhenFalse: whenFalse}
}

// Kind returns the node kind
func (c *Conditional) Kind() NodeKind { return KindConditional }

// Visit visits the node with a visitor
func (c *Conditional) Visit(v Visitor) (interface{}, error) { return v.VisitConditional(c) }

// Loop represents an array-driven repeated subtree. Every iteration reuses
// the same identifier sequence from Template; items are distinguished at
// runtime by a positional index attribute, which keeps the generated
// template constant-size regardless of array length.
type Loop struct {
	Source    string   `json:"source"`
	ItemName  string   `json:"itemName"`
	IndexName string   `json:"indexName,omitempty"`
	KeyExpr   string   `json:"keyExpr,omitempty"`
	Template  *Element `json:"-"`
	ID        string   `json:"-"`
}

// NewLoop creates a new Loop node
func NewLoop(source, itemName, indexName, keyExpr string, template *Element) *Loop {
	return &Loop{
		Source:    source,
		ItemName:  itemName,
		IndexName: indexName,
		KeyExpr:   keyExpr,
		Template:  template,
	}
}

// Kind returns the node kind
func (l *Loop) Kind() NodeKind { return KindLoop }

// Visit visits the node with a visitor
func (l *Loop) Visit(v Visitor) (interface{}, error) { return v.VisitLoop(l) }

// StaticProp represents a component prop with a compile-time value
type StaticProp struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DynamicProp represents a component prop bound to an expression
type DynamicProp struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// Component represents an invocation of another compiled unit. The
// allocator assigns ID (prefix "k") so nested invocations get stable
// per-call-site instance scopes.
type Component struct {
	Name         string         `json:"name"`
	Props        []*StaticProp  `json:"props,omitempty"`
	DynProps     []*DynamicProp `json:"dynProps,omitempty"`
	Spreads      []string       `json:"spreads,omitempty"`
	Children     []Node         `json:"-"`
	LazyChildren bool           `json:"lazyChildren,omitempty"`
	ID           string         `json:"-"`
}

// NewComponent creates a new Component node
func NewComponent(name string, children ...Node) *Component {
	return &Component{Name: name, Children: children}
}

// Kind returns the node kind
func (c *Component) Kind() NodeKind { return KindComponent }

// Visit visits the node with a visitor
func (c *Component) Visit(v Visitor) (interface{}, error) { return v.VisitComponent(c) }

// Fragment represents a sequence of nodes with no wrapping element
type Fragment struct {
	Children []Node `json:"-"`
}

// NewFragment creates a new Fragment node
func NewFragment(children ...Node) *Fragment {
	return &Fragment{Children: children}
}

// Kind returns the node kind
func (f *Fragment) Kind() NodeKind { return KindFragment }

// Visit visits the node with a visitor
func (f *Fragment) Visit(v Visitor) (interface{}, error) { return v.VisitFragment(f) }

// Slot represents the pass-through children placeholder
type Slot struct{}

// NewSlot creates a new Slot node
func NewSlot() *Slot { return &Slot{} }

// Kind returns the node kind
func (s *Slot) Kind() NodeKind { return KindSlot }

// Visit visits the node with a visitor
func (s *Slot) Visit(v Visitor) (interface{}, error) { return v.VisitSlot(s) }

// Visitor visits every node kind. Implementations must handle all eight
// kinds; there is no partial base to fall back on except RecursiveVisitor.
type Visitor interface {
	VisitText(t *Text) (interface{}, error)
	VisitExpression(e *Expression) (interface{}, error)
	VisitElement(e *Element) (interface{}, error)
	VisitConditional(c *Conditional) (interface{}, error)
	VisitLoop(l *Loop) (interface{}, error)
	VisitComponent(c *Component) (interface{}, error)
	VisitFragment(f *Fragment) (interface{}, error)
	VisitSlot(s *Slot) (interface{}, error)
}

// VisitAll visits all nodes in a slice, stopping at the first error
func VisitAll(v Visitor, nodes []Node) error {
	for _, node := range nodes {
		if _, err := node.Visit(v); err != nil {
			return err
		}
	}
	return nil
}

// RecursiveVisitor is a visitor that recursively visits all nodes and
// returns nil for every kind. Embed it to override a subset of kinds.
type RecursiveVisitor struct{}

// VisitText visits text (no-op)
func (rv *RecursiveVisitor) VisitText(t *Text) (interface{}, error) { return nil, nil }

// VisitExpression visits an expression (no-op)
func (rv *RecursiveVisitor) VisitExpression(e *Expression) (interface{}, error) { return nil, nil }

// VisitElement visits an element's children
func (rv *RecursiveVisitor) VisitElement(e *Element) (interface{}, error) {
	return nil, VisitAll(rv, e.Children)
}

// VisitConditional visits both branches
func (rv *RecursiveVisitor) VisitConditional(c *Conditional) (interface{}, error) {
	if c.WhenTrue != nil {
		if _, err := c.WhenTrue.Visit(rv); err != nil {
			return nil, err
		}
	}
	if c.WhenFalse != nil {
		if _, err := c.WhenFalse.Visit(rv); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// VisitLoop visits the per-item template
func (rv *RecursiveVisitor) VisitLoop(l *Loop) (interface{}, error) {
	if l.Template != nil {
		if _, err := l.Template.Visit(rv); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// VisitComponent visits the invocation children
func (rv *RecursiveVisitor) VisitComponent(c *Component) (interface{}, error) {
	return nil, VisitAll(rv, c.Children)
}

// VisitFragment visits the fragment children
func (rv *RecursiveVisitor) VisitFragment(f *Fragment) (interface{}, error) {
	return nil, VisitAll(rv, f.Children)
}

// VisitSlot visits a slot (no-op)
func (rv *RecursiveVisitor) VisitSlot(s *Slot) (interface{}, error) { return nil, nil }
