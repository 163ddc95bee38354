package ir

import (
	"encoding/json"
	"fmt"
	"io"
)

// The wire format the external parser hands across the process boundary:
// every node object carries a "kind" discriminator, child trees are nested
// under "children" (or "whenTrue"/"whenFalse"/"template" where the node
// kind names its subtrees).

type nodeJSON struct {
	KindName string `json:"kind"`

	// Text
	Content string `json:"content"`

	// Expression
	Expr      string `json:"expr"`
	IsDynamic bool   `json:"isDynamic"`

	// Element
	Tag      string          `json:"tag"`
	Attrs    []*StaticAttr   `json:"attrs"`
	DynAttrs []*DynamicAttr  `json:"dynAttrs"`
	Spreads  []string        `json:"spreads"`
	Ref      string          `json:"ref"`
	Events   []*EventBinding `json:"events"`

	// Conditional
	Condition string          `json:"condition"`
	WhenTrue  json.RawMessage `json:"whenTrue"`
	WhenFalse json.RawMessage `json:"whenFalse"`

	// Loop
	Source    string          `json:"source"`
	ItemName  string          `json:"itemName"`
	IndexName string          `json:"indexName"`
	KeyExpr   string          `json:"keyExpr"`
	Template  json.RawMessage `json:"template"`

	// Component
	Name         string         `json:"name"`
	Props        []*StaticProp  `json:"props"`
	DynProps     []*DynamicProp `json:"dynProps"`
	LazyChildren bool           `json:"lazyChildren"`

	Children []json.RawMessage `json:"children"`
}

type unitJSON struct {
	Name        string            `json:"name"`
	Interactive bool              `json:"interactive"`
	Props       []*PropDecl       `json:"props"`
	States      []*StateDecl      `json:"states"`
	Derived     []*DerivedDecl    `json:"derived"`
	Handlers    []*HandlerDecl    `json:"handlers"`
	Roots       []json.RawMessage `json:"roots"`
}

// DecodeUnit decodes a ComponentUnit from the external parser's JSON form.
func DecodeUnit(r io.Reader) (*ComponentUnit, error) {
	var raw unitJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding component unit: %w", err)
	}

	roots, err := decodeNodes(raw.Roots)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", raw.Name, err)
	}

	return &ComponentUnit{
		Name:        raw.Name,
		Interactive: raw.Interactive,
		Props:       raw.Props,
		States:      raw.States,
		Derived:     raw.Derived,
		Handlers:    raw.Handlers,
		Roots:       roots,
	}, nil
}

func decodeNodes(raw []json.RawMessage) ([]Node, error) {
	nodes := make([]Node, 0, len(raw))
	for _, msg := range raw {
		node, err := decodeNode(msg)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func decodeNode(msg json.RawMessage) (Node, error) {
	var raw nodeJSON
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, err
	}

	switch raw.KindName {
	case "text":
		return NewText(raw.Content), nil

	case "expression":
		return NewExpression(raw.Expr, raw.IsDynamic), nil

	case "element":
		children, err := decodeNodes(raw.Children)
		if err != nil {
			return nil, err
		}
		return &Element{
			Tag:      raw.Tag,
			Attrs:    raw.Attrs,
			DynAttrs: raw.DynAttrs,
			Spreads:  raw.Spreads,
			Ref:      raw.Ref,
			Events:   raw.Events,
			Children: children,
		}, nil

	case "conditional":
		cond := NewConditional(raw.Condition, nil, nil)
		if len(raw.WhenTrue) > 0 {
			node, err := decodeNode(raw.WhenTrue)
			if err != nil {
				return nil, err
			}
			cond.WhenTrue = node
		}
		if len(raw.WhenFalse) > 0 {
			node, err := decodeNode(raw.WhenFalse)
			if err != nil {
				return nil, err
			}
			cond.WhenFalse = node
		}
		return cond, nil

	case "loop":
		if len(raw.Template) == 0 {
			return nil, fmt.Errorf("loop over %q has no template", raw.Source)
		}
		node, err := decodeNode(raw.Template)
		if err != nil {
			return nil, err
		}
		template, ok := node.(*Element)
		if !ok {
			return nil, fmt.Errorf("loop over %q: template must be an element", raw.Source)
		}
		return NewLoop(raw.Source, raw.ItemName, raw.IndexName, raw.KeyExpr, template), nil

	case "component":
		children, err := decodeNodes(raw.Children)
		if err != nil {
			return nil, err
		}
		return &Component{
			Name:         raw.Name,
			Props:        raw.Props,
			DynProps:     raw.DynProps,
			Spreads:      raw.Spreads,
			Children:     children,
			LazyChildren: raw.LazyChildren,
		}, nil

	case "fragment":
		children, err := decodeNodes(raw.Children)
		if err != nil {
			return nil, err
		}
		return NewFragment(children...), nil

	case "slot":
		return NewSlot(), nil
	}

	return nil, fmt.Errorf("unknown node kind %q", raw.KindName)
}
