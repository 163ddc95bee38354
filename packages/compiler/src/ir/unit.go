package ir

// StateDecl represents one reactive cell: a getter/setter pair over a
// single unit of observable state, declared once per component.
type StateDecl struct {
	// Name is the getter name; a read in an expression is written "name()".
	Name string `json:"name"`
	// Setter is the setter name, e.g. "setCount".
	Setter string `json:"setter"`
	// Initial is the declared initial value expression.
	Initial string `json:"initial"`
}

// DerivedDecl represents a derived cell: a value computed from other cells,
// recomputed wherever referenced.
type DerivedDecl struct {
	Name string `json:"name"`
	Body string `json:"body"`
	// IsBlock is true when Body is a multi-statement block rather than a
	// single expression.
	IsBlock bool `json:"isBlock,omitempty"`
}

// PropDecl represents a parent-supplied value, referenced in expressions
// as "props.name".
type PropDecl struct {
	Name string `json:"name"`
	// Default is the declared default value expression, or empty when the
	// prop has no default.
	Default string `json:"default,omitempty"`
}

// HandlerDecl represents a named handler function declared in the
// component's top-level scope.
type HandlerDecl struct {
	Name   string `json:"name"`
	Params string `json:"params,omitempty"`
	Body   string `json:"body"`
}

// ComponentUnit is one compile unit: the IR tree for a single component
// together with its top-level declarations. Units are produced fresh per
// compile invocation, are immutable during backend consumption apart from
// the identifiers the allocator fills in, and are discarded afterwards.
type ComponentUnit struct {
	Name string `json:"name"`
	// Interactive is true when the author explicitly marked the component
	// as requiring client interactivity. A unit that reads cells or binds
	// events without this flag is a fatal compile error.
	Interactive bool           `json:"interactive"`
	Props       []*PropDecl    `json:"props,omitempty"`
	States      []*StateDecl   `json:"states,omitempty"`
	Derived     []*DerivedDecl `json:"derived,omitempty"`
	Handlers    []*HandlerDecl `json:"handlers,omitempty"`
	Roots       []Node         `json:"-"`
}

// RootElement returns the single root element of the unit, or nil when the
// unit has multiple roots or a non-element root.
func (u *ComponentUnit) RootElement() *Element {
	if len(u.Roots) != 1 {
		return nil
	}
	el, ok := u.Roots[0].(*Element)
	if !ok {
		return nil
	}
	return el
}
