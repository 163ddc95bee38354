package render

import (
	"strings"
	"testing"

	"pulse-go/packages/compiler/src/allocate"
	"pulse-go/packages/compiler/src/ir"
	"pulse-go/packages/compiler/src/reactivity"
)

func generate(t *testing.T, unit *ir.ComponentUnit) string {
	t.Helper()
	ann, err := allocate.Annotate(unit, reactivity.NewScope(unit))
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	out, err := Generate(ann)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return out
}

func TestGenerateCounter(t *testing.T) {
	unit := &ir.ComponentUnit{
		Name:        "Counter",
		Interactive: true,
		States:      []*ir.StateDecl{{Name: "count", Setter: "setCount", Initial: "0"}},
		Handlers:    []*ir.HandlerDecl{{Name: "increment", Body: "setCount(count() + 1)"}},
		Roots: []ir.Node{
			ir.NewElement("div",
				ir.NewElement("span",
					ir.NewText("Count: "),
					ir.NewExpression("count()", true),
				),
				&ir.Element{
					Tag:      "button",
					Events:   []*ir.EventBinding{{Event: "click", Handler: "increment"}},
					Children: []ir.Node{ir.NewText("+")},
				},
			),
		},
	}

	got := generate(t, unit)
	want := "// Generated by pulsec. Do not edit.\n" +
		"\n" +
		"export function render(props, $$scope, $$children) {\n" +
		"  return `<div data-pulse=\"${$$scope}\"><span>Count: ${0}</span>" +
		"<button data-pulse-event=\"e0\">+</button></div>`;\n" +
		"}\n" +
		"\n" +
		"export default { render };"
	if got != want {
		t.Errorf("module mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateLoop(t *testing.T) {
	unit := &ir.ComponentUnit{
		Name:        "List",
		Interactive: true,
		Props:       []*ir.PropDecl{{Name: "items", Default: "[]"}},
		States:      []*ir.StateDecl{{Name: "rows", Setter: "setRows", Initial: "props.items"}},
		Roots: []ir.Node{
			ir.NewElement("div",
				ir.NewElement("ul",
					ir.NewLoop("rows()", "item", "i", "item.id",
						&ir.Element{
							Tag:      "li",
							Events:   []*ir.EventBinding{{Event: "click", Handler: "(e) => remove(i)"}},
							Children: []ir.Node{ir.NewExpression("item.name", true)},
						},
					),
				),
			),
		},
	}

	got := generate(t, unit)

	t.Run("source keeps prop fallback", func(t *testing.T) {
		if !strings.Contains(got, "((props.items ?? [])).map((item, __i) =>") {
			t.Errorf("loop source not substituted with fallback:\n%s", got)
		}
	})

	t.Run("item root carries key, index and event attributes", func(t *testing.T) {
		want := "<li data-pulse-key=\"${item.id}\" data-pulse-index=\"${__i}\"" +
			" data-pulse-event=\"e0\">${item.name}</li>"
		if !strings.Contains(got, want) {
			t.Errorf("item template missing %q in:\n%s", want, got)
		}
	})
}

func TestGenerateConditional(t *testing.T) {
	unit := &ir.ComponentUnit{
		Name:        "Toggle",
		Interactive: true,
		States:      []*ir.StateDecl{{Name: "on", Setter: "setOn", Initial: "false"}},
		Roots: []ir.Node{
			ir.NewElement("div",
				ir.NewConditional("on()",
					ir.NewElement("span", ir.NewText("yes")),
					nil,
				),
				ir.NewElement("p", ir.NewExpression("on()", true)),
			),
		},
	}

	got := generate(t, unit)

	t.Run("single-element branch carries marker attribute", func(t *testing.T) {
		if !strings.Contains(got, "<span data-pulse-cond=\"c0\">yes</span>") {
			t.Errorf("true branch missing marker attribute:\n%s", got)
		}
	})

	t.Run("empty branch becomes comment pair", func(t *testing.T) {
		if !strings.Contains(got, "<!--pulse:c0--><!--/pulse:c0-->") {
			t.Errorf("false branch missing comment pair:\n%s", got)
		}
	})

	t.Run("condition substituted to initial value", func(t *testing.T) {
		if !strings.Contains(got, "${(false) ?") {
			t.Errorf("condition not substituted:\n%s", got)
		}
	})

	t.Run("unreachable sibling gets marker attribute", func(t *testing.T) {
		if !strings.Contains(got, "<p data-pulse-id=\"t0\">${false}</p>") {
			t.Errorf("marker attribute missing on post-conditional sibling:\n%s", got)
		}
	})
}

func TestGenerateComponents(t *testing.T) {
	unit := &ir.ComponentUnit{
		Name:        "Page",
		Interactive: true,
		States:      []*ir.StateDecl{{Name: "count", Setter: "setCount", Initial: "0"}},
		Roots: []ir.Node{
			ir.NewElement("div",
				&ir.Component{
					Name:  "Child",
					Props: []*ir.StaticProp{{Name: "label", Value: "x"}},
					DynProps: []*ir.DynamicProp{
						{Name: "value", Expr: "count()"},
						{Name: "onDone", Expr: "(x) => done(x)"},
					},
					Children: []ir.Node{ir.NewText("hi")},
				},
			),
		},
	}

	got := generate(t, unit)

	t.Run("handler props dropped, values substituted", func(t *testing.T) {
		want := "${Child.render({label: 'x', value: (0)}, `${$$scope}:k0`, `hi`)}"
		if !strings.Contains(got, want) {
			t.Errorf("component call missing %q in:\n%s", want, got)
		}
	})
}

func TestGenerateHelpers(t *testing.T) {
	t.Run("spread helper inserted before use", func(t *testing.T) {
		unit := &ir.ComponentUnit{
			Name: "Spread",
			Roots: []ir.Node{
				&ir.Element{Tag: "div", Spreads: []string{"extra()"}},
			},
		}
		got := generate(t, unit)
		helperAt := strings.Index(got, "const $$attrs")
		useAt := strings.Index(got, "$$attrs(extra())")
		if helperAt < 0 || useAt < 0 || helperAt > useAt {
			t.Errorf("helper not inserted before use (helper %d, use %d):\n%s", helperAt, useAt, got)
		}
	})

	t.Run("slot helper", func(t *testing.T) {
		unit := &ir.ComponentUnit{
			Name:  "Wrap",
			Roots: []ir.Node{ir.NewElement("div", ir.NewSlot())},
		}
		got := generate(t, unit)
		if !strings.Contains(got, "${$$slot($$children)}") {
			t.Errorf("slot not rendered through helper:\n%s", got)
		}
		if !strings.Contains(got, "const $$slot") {
			t.Errorf("slot helper not emitted:\n%s", got)
		}
	})
}

func TestTemplateEscaping(t *testing.T) {
	unit := &ir.ComponentUnit{
		Name:  "Esc",
		Roots: []ir.Node{ir.NewElement("p", ir.NewText("50% `off` ${deal}"))},
	}
	got := generate(t, unit)
	if !strings.Contains(got, "50% \\`off\\` \\${deal}") {
		t.Errorf("static text not escaped for template literal:\n%s", got)
	}
}
