package allocate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pulse-go/packages/compiler/src/ir"
	"pulse-go/packages/compiler/src/reactivity"
	"pulse-go/packages/compiler/src/util"
)

func annotate(t *testing.T, unit *ir.ComponentUnit) *Annotation {
	t.Helper()
	ann, err := Annotate(unit, reactivity.NewScope(unit))
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	return ann
}

func counterUnit() *ir.ComponentUnit {
	return &ir.ComponentUnit{
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
}

func TestAnnotateCounter(t *testing.T) {
	unit := counterUnit()
	ann := annotate(t, unit)

	t.Run("scope root", func(t *testing.T) {
		if ann.Root == nil || !ann.Root.ScopeRoot {
			t.Fatalf("root not scope-marked: %+v", ann.Root)
		}
	})

	t.Run("text slot", func(t *testing.T) {
		if len(ann.TextSlots) != 1 {
			t.Fatalf("got %d text slots, want 1", len(ann.TextSlots))
		}
		slot := ann.TextSlots[0]
		if slot.ID != "t0" {
			t.Errorf("slot ID = %q, want t0", slot.ID)
		}
		if diff := cmp.Diff([]int{0, 0}, slot.DomPath); diff != "" {
			t.Errorf("DomPath mismatch (-want +got):\n%s", diff)
		}
		wantParts := []TextPart{{Static: "Count: "}, {Expr: "count()"}}
		if diff := cmp.Diff(wantParts, slot.Parts); diff != "" {
			t.Errorf("Parts mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("handler", func(t *testing.T) {
		if len(ann.Handlers) != 1 {
			t.Fatalf("got %d handlers, want 1", len(ann.Handlers))
		}
		h := ann.Handlers[0]
		if h.ID != "e0" || h.InLoop {
			t.Errorf("handler = %+v", h)
		}
		if diff := cmp.Diff([]int{0, 1}, h.DomPath); diff != "" {
			t.Errorf("DomPath mismatch (-want +got):\n%s", diff)
		}
		if h.Event.ID != "e0" {
			t.Errorf("event ID not written back into the tree: %q", h.Event.ID)
		}
	})
}

func TestAnnotateEventSequence(t *testing.T) {
	unit := &ir.ComponentUnit{
		Name:        "Buttons",
		Interactive: true,
		Roots: []ir.Node{
			ir.NewElement("div",
				&ir.Element{Tag: "button", Events: []*ir.EventBinding{{Event: "click", Handler: "a"}}},
				&ir.Element{Tag: "button", Events: []*ir.EventBinding{{Event: "click", Handler: "b"}}},
			),
		},
	}
	ann := annotate(t, unit)

	var ids []string
	for _, h := range ann.Handlers {
		ids = append(ids, h.ID)
	}
	if diff := cmp.Diff([]string{"e0", "e1"}, ids); diff != "" {
		t.Errorf("handler IDs mismatch (-want +got):\n%s", diff)
	}
}

func loopUnit(secondLoop bool) *ir.ComponentUnit {
	item := func() *ir.Element {
		return &ir.Element{
			Tag:    "li",
			Events: []*ir.EventBinding{{Event: "click", Handler: "(e) => pick(item.id)"}},
			Children: []ir.Node{
				ir.NewExpression("item.name", true),
			},
		}
	}
	children := []ir.Node{
		ir.NewElement("ul", ir.NewLoop("items()", "item", "i", "item.id", item())),
	}
	if secondLoop {
		children = append(children,
			ir.NewElement("ol", ir.NewLoop("others()", "item", "", "", item())))
	}
	return &ir.ComponentUnit{
		Name:        "List",
		Interactive: true,
		States:      []*ir.StateDecl{{Name: "items", Setter: "setItems", Initial: "[]"}},
		Roots:       []ir.Node{ir.NewElement("div", children...)},
	}
}

func TestAnnotateLoops(t *testing.T) {
	t.Run("container and identifier", func(t *testing.T) {
		ann := annotate(t, loopUnit(false))
		if len(ann.Loops) != 1 {
			t.Fatalf("got %d loops, want 1", len(ann.Loops))
		}
		lt := ann.Loops[0]
		if lt.ID != "l0" || lt.Container.Tag != "ul" {
			t.Errorf("loop target = %+v", lt)
		}
		if diff := cmp.Diff([]int{0, 0}, lt.DomPath); diff != "" {
			t.Errorf("DomPath mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("event counter restarts per loop", func(t *testing.T) {
		ann := annotate(t, loopUnit(true))
		if len(ann.Loops) != 2 {
			t.Fatalf("got %d loops, want 2", len(ann.Loops))
		}
		for _, lt := range ann.Loops {
			if len(lt.Handlers) != 1 || lt.Handlers[0].ID != "e0" {
				t.Errorf("loop %s handlers = %+v", lt.ID, lt.Handlers)
			}
		}
	})

	t.Run("in-loop slots are not tracked individually", func(t *testing.T) {
		ann := annotate(t, loopUnit(false))
		if len(ann.TextSlots) != 0 {
			t.Errorf("in-loop text tracked as slot: %+v", ann.TextSlots)
		}
	})

	t.Run("in-loop handlers are delegated", func(t *testing.T) {
		ann := annotate(t, loopUnit(false))
		if len(ann.Handlers) != 1 || !ann.Handlers[0].InLoop {
			t.Fatalf("handlers = %+v", ann.Handlers)
		}
		if ann.Handlers[0].Loop == nil {
			t.Errorf("delegated handler has no loop")
		}
	})
}

func TestAnnotateNestedLoops(t *testing.T) {
	inner := ir.NewLoop("row.cells", "cell", "", "",
		&ir.Element{
			Tag:      "span",
			Events:   []*ir.EventBinding{{Event: "click", Handler: "(e) => pick(cell)"}},
			Children: []ir.Node{ir.NewExpression("cell", true)},
		})
	unit := &ir.ComponentUnit{
		Name:        "Grid",
		Interactive: true,
		States:      []*ir.StateDecl{{Name: "rows", Setter: "setRows", Initial: "[]"}},
		Roots: []ir.Node{
			ir.NewElement("div",
				ir.NewElement("ul",
					ir.NewLoop("rows()", "row", "r", "",
						ir.NewElement("li",
							&ir.Element{
								Tag:    "button",
								Events: []*ir.EventBinding{{Event: "click", Handler: "(e) => open(row.id)"}},
							},
							ir.NewElement("ol", inner),
						),
					),
				),
			),
		},
	}
	ann := annotate(t, unit)

	t.Run("only the outer loop is updated independently", func(t *testing.T) {
		if len(ann.Loops) != 1 {
			t.Fatalf("got %d loop targets, want 1", len(ann.Loops))
		}
		if ann.Loops[0].ID != "l0" || ann.Loops[0].Container.Tag != "ul" {
			t.Errorf("loop target = %+v", ann.Loops[0])
		}
	})

	t.Run("inner loop keeps a deterministic identifier", func(t *testing.T) {
		if inner.ID != "l1" {
			t.Errorf("inner loop ID = %q, want l1", inner.ID)
		}
	})

	t.Run("inner container carries no marker", func(t *testing.T) {
		if len(ann.Loops) == 1 && ann.Loops[0].Container.NeedsMarker {
			t.Errorf("outer container marker-flagged: %+v", ann.Loops[0].Container)
		}
		if inner.Template == nil {
			t.Fatalf("inner template lost")
		}
	})

	t.Run("event counter restarts at every depth", func(t *testing.T) {
		if len(ann.Handlers) != 2 {
			t.Fatalf("got %d handlers, want 2", len(ann.Handlers))
		}
		for _, h := range ann.Handlers {
			if h.ID != "e0" || !h.InLoop {
				t.Errorf("handler = %+v, want restarted e0", h)
			}
		}
		if ann.Handlers[1].Loop != inner {
			t.Errorf("inner handler bound to loop %+v", ann.Handlers[1].Loop)
		}
	})
}

func TestAnnotateComponentChildren(t *testing.T) {
	unit := &ir.ComponentUnit{
		Name:        "Page",
		Interactive: true,
		States:      []*ir.StateDecl{{Name: "count", Setter: "setCount", Initial: "0"}},
		Roots: []ir.Node{
			ir.NewElement("div",
				&ir.Component{
					Name: "Card",
					Children: []ir.Node{
						ir.NewElement("span", ir.NewExpression("count()", true)),
					},
				},
			),
		},
	}
	ann := annotate(t, unit)

	// The span renders wherever Card places its pass-through children, not
	// at its own IR position, so a relative DOM path cannot reach it.
	if len(ann.TextSlots) != 1 {
		t.Fatalf("got %d text slots, want 1", len(ann.TextSlots))
	}
	slot := ann.TextSlots[0]
	if !slot.Element.NeedsMarker {
		t.Errorf("pass-through child addressed by position: %+v", slot)
	}
	if slot.Element.MarkerID != slot.ID {
		t.Errorf("marker ID %q does not reuse slot ID %q", slot.Element.MarkerID, slot.ID)
	}
}

func TestAnnotateMarkers(t *testing.T) {
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
	ann := annotate(t, unit)

	t.Run("reactive conditional gets identifier", func(t *testing.T) {
		if len(ann.Conditionals) != 1 {
			t.Fatalf("got %d conditionals, want 1", len(ann.Conditionals))
		}
		ct := ann.Conditionals[0]
		if ct.ID != "c0" || !ct.SingleTrue || ct.SingleFalse {
			t.Errorf("conditional target = %+v", ct)
		}
	})

	t.Run("sibling after conditional needs a marker", func(t *testing.T) {
		if len(ann.TextSlots) != 1 {
			t.Fatalf("got %d text slots, want 1", len(ann.TextSlots))
		}
		slot := ann.TextSlots[0]
		if !slot.Element.NeedsMarker {
			t.Errorf("element after conditional not marker-flagged")
		}
		if slot.Element.MarkerID != slot.ID {
			t.Errorf("marker ID %q does not reuse slot ID %q", slot.Element.MarkerID, slot.ID)
		}
	})
}

func TestAnnotateStaticConditional(t *testing.T) {
	unit := &ir.ComponentUnit{
		Name: "Static",
		Roots: []ir.Node{
			ir.NewElement("div",
				ir.NewConditional("1 > 2", ir.NewElement("span"), nil),
			),
		},
	}
	ann := annotate(t, unit)
	if len(ann.Conditionals) != 0 {
		t.Errorf("static conditional got an identifier: %+v", ann.Conditionals)
	}
}

func TestAnnotateErrors(t *testing.T) {
	tests := []struct {
		name string
		unit *ir.ComponentUnit
		want string
	}{
		{
			name: "interactive without element root",
			unit: &ir.ComponentUnit{
				Name:        "Bad",
				Interactive: true,
				Roots:       []ir.Node{ir.NewFragment(ir.NewElement("div"))},
			},
			want: "single element root",
		},
		{
			name: "loop with siblings",
			unit: &ir.ComponentUnit{
				Name:        "Bad",
				Interactive: true,
				Roots: []ir.Node{
					ir.NewElement("div",
						ir.NewElement("ul",
							ir.NewText("header"),
							ir.NewLoop("items()", "item", "", "", ir.NewElement("li")),
						),
					),
				},
			},
			want: "only child",
		},
		{
			name: "ref inside loop template",
			unit: &ir.ComponentUnit{
				Name:        "Bad",
				Interactive: true,
				Roots: []ir.Node{
					ir.NewElement("div",
						ir.NewElement("ul",
							ir.NewLoop("items()", "item", "", "",
								&ir.Element{Tag: "li", Ref: "(el) => keep(el)"}),
						),
					),
				},
			},
			want: "ref callbacks",
		},
		{
			name: "dynamic text interleaved with elements",
			unit: &ir.ComponentUnit{
				Name:        "Bad",
				Interactive: true,
				States:      []*ir.StateDecl{{Name: "n", Setter: "setN", Initial: "0"}},
				Roots: []ir.Node{
					ir.NewElement("div",
						ir.NewExpression("n()", true),
						ir.NewElement("b", ir.NewText("x")),
					),
				},
			},
			want: "interleaved",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Annotate(tt.unit, reactivity.NewScope(tt.unit))
			if err == nil {
				t.Fatalf("Annotate succeeded, want error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want substring %q", err, tt.want)
			}
			var cerr *util.CompileError
			if !errors.As(err, &cerr) {
				t.Errorf("error is not a *util.CompileError: %T", err)
			}
		})
	}
}
