package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"pulse-go/packages/compiler/src/ir"
)

func counterUnit() *ir.ComponentUnit {
	return &ir.ComponentUnit{
		Name:        "Counter",
		Interactive: true,
		States:      []*ir.StateDecl{{Name: "count", Setter: "setCount", Initial: "0"}},
		Handlers:    []*ir.HandlerDecl{{Name: "increment", Body: "setCount(count() + 1)"}},
		Roots: []ir.Node{
			ir.NewElement("div",
				ir.NewElement("span", ir.NewExpression("count()", true)),
				&ir.Element{
					Tag:      "button",
					Events:   []*ir.EventBinding{{Event: "click", Handler: "increment"}},
					Children: []ir.Node{ir.NewText("+")},
				},
			),
		},
	}
}

func TestCompileInteractive(t *testing.T) {
	out, err := Compile(counterUnit(), CompileOptions{Render: true, Client: true})
	require.NoError(t, err)

	assert.Empty(t, out.Markup, "markup not requested")
	assert.Contains(t, out.Render, "export function render(props, $$scope, $$children) {")
	assert.Contains(t, out.Render, `data-pulse-event="e0"`)
	assert.Contains(t, out.Client, "export function init($$scope, props = {}) {")
	assert.Contains(t, out.Client, "e0.onclick = increment;")
}

func TestCompileStatic(t *testing.T) {
	badge := &ir.ComponentUnit{
		Name:  "Badge",
		Props: []*ir.PropDecl{{Name: "label", Default: "'New'"}},
		Roots: []ir.Node{
			&ir.Element{
				Tag:      "span",
				Attrs:    []*ir.StaticAttr{{Name: "class", Value: "badge"}},
				Children: []ir.Node{ir.NewExpression("props.label", false)},
			},
		},
	}

	t.Run("markup parses and resolves defaults", func(t *testing.T) {
		out, err := Compile(badge, CompileOptions{Markup: true, Render: true, Client: true})
		require.NoError(t, err)

		assert.Empty(t, out.Client, "non-interactive units have no client module")
		assert.NotEmpty(t, out.Render)

		doc, err := html.Parse(strings.NewReader(out.Markup))
		require.NoError(t, err)
		span := findElement(doc, "span")
		require.NotNil(t, span, "no <span> in %q", out.Markup)
		assert.Equal(t, "New", textOf(span))
		assert.Equal(t, "badge", attrOf(span, "class"))
	})

	t.Run("caller prop values win over defaults", func(t *testing.T) {
		out, err := Compile(badge, CompileOptions{
			Markup:     true,
			PropValues: map[string]string{"label": "'Hot'"},
		})
		require.NoError(t, err)
		assert.Equal(t, `<span class="badge">Hot</span>`, out.Markup)
	})
}

func TestCompileRejectsDeadInteractivity(t *testing.T) {
	tests := []struct {
		name string
		unit *ir.ComponentUnit
		want string
	}{
		{
			name: "state without interactive",
			unit: &ir.ComponentUnit{
				Name:   "S",
				States: []*ir.StateDecl{{Name: "n", Setter: "setN", Initial: "0"}},
				Roots:  []ir.Node{ir.NewElement("div")},
			},
			want: "reactive state",
		},
		{
			name: "derived cells without interactive",
			unit: &ir.ComponentUnit{
				Name:    "D",
				Derived: []*ir.DerivedDecl{{Name: "double", Body: "n() * 2"}},
				Roots:   []ir.Node{ir.NewElement("div")},
			},
			want: "derived cells",
		},
		{
			name: "handlers without interactive",
			unit: &ir.ComponentUnit{
				Name:     "H",
				Handlers: []*ir.HandlerDecl{{Name: "go", Body: "x()"}},
				Roots:    []ir.Node{ir.NewElement("div")},
			},
			want: "declares handlers",
		},
		{
			name: "event binding nested in a conditional",
			unit: &ir.ComponentUnit{
				Name: "E",
				Roots: []ir.Node{
					ir.NewElement("div",
						ir.NewConditional("1 > 0",
							&ir.Element{
								Tag:    "button",
								Events: []*ir.EventBinding{{Event: "click", Handler: "go"}},
							},
							nil,
						),
					),
				},
			},
			want: "not marked interactive",
		},
		{
			name: "ref callback",
			unit: &ir.ComponentUnit{
				Name:  "R",
				Roots: []ir.Node{&ir.Element{Tag: "input", Ref: "(el) => el.focus()"}},
			},
			want: "ref callback",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.unit, CompileOptions{Render: true})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompileComponentResolution(t *testing.T) {
	card := &ir.ComponentUnit{
		Name:  "Card",
		Props: []*ir.PropDecl{{Name: "title", Default: "'Untitled'"}},
		Roots: []ir.Node{
			ir.NewElement("section",
				ir.NewElement("h2", ir.NewExpression("props.title", false)),
				ir.NewElement("div", ir.NewSlot()),
			),
		},
	}
	page := &ir.ComponentUnit{
		Name: "Page",
		Roots: []ir.Node{
			&ir.Component{
				Name:     "Card",
				Props:    []*ir.StaticProp{{Name: "title", Value: "Hello"}},
				Children: []ir.Node{ir.NewText("body")},
			},
		},
	}

	out, err := Compile(page, CompileOptions{
		Markup: true,
		Resolver: func(name string) (*ir.ComponentUnit, error) {
			if name == "Card" {
				return card, nil
			}
			return nil, nil
		},
	})
	require.NoError(t, err)

	doc, err := html.Parse(strings.NewReader(out.Markup))
	require.NoError(t, err)
	h2 := findElement(doc, "h2")
	require.NotNil(t, h2, "no <h2> in %q", out.Markup)
	assert.Equal(t, "Hello", textOf(h2))
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func attrOf(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
