package compiler

import (
	"pulse-go/packages/compiler/src/allocate"
	"pulse-go/packages/compiler/src/client"
	"pulse-go/packages/compiler/src/ir"
	"pulse-go/packages/compiler/src/markup"
	"pulse-go/packages/compiler/src/reactivity"
	"pulse-go/packages/compiler/src/render"
	"pulse-go/packages/compiler/src/util"
)

// CompileOptions select the artifacts to produce and supply the
// cross-component context the backends need. The zero value produces
// nothing; callers enable the backends they serve.
type CompileOptions struct {
	// Markup requests the resolved-markup artifact.
	Markup bool
	// Render requests the preserving-expression render module.
	Render bool
	// Client requests the client-update module. Ignored for
	// non-interactive units, which have no client module.
	Client bool

	// PropValues are caller-supplied prop value expressions for the
	// resolved-markup backend; omitted props fall back to their declared
	// defaults.
	PropValues map[string]string

	// Resolver maps a component name to its compile unit so the
	// resolved-markup backend can inline nested invocations.
	Resolver func(name string) (*ir.ComponentUnit, error)

	// Interactive reports whether a nested component compiles to a client
	// module of its own. Nil treats every nested component as
	// interactive.
	Interactive func(name string) bool
}

// Artifacts holds the generated modules for one component unit. Fields
// for backends that were not requested are empty.
type Artifacts struct {
	Markup string
	Render string
	Client string
}

// Compile runs the pipeline for one unit. It is pure and synchronous:
// no shared state survives the call, so compiling different units
// concurrently is safe. On error no partial artifacts are returned.
func Compile(unit *ir.ComponentUnit, opts CompileOptions) (*Artifacts, error) {
	if err := validate(unit); err != nil {
		return nil, err
	}

	scope := reactivity.NewScope(unit)
	ann, err := allocate.Annotate(unit, scope)
	if err != nil {
		return nil, err
	}

	out := &Artifacts{}

	if opts.Markup {
		mScope := reactivity.NewScope(unit)
		mScope.PropValues = map[string]string{}
		for name, value := range opts.PropValues {
			mScope.PropValues[name] = value
		}
		s, err := markup.Generate(unit, mScope, markup.Options{Resolver: opts.Resolver})
		if err != nil {
			return nil, err
		}
		out.Markup = s
	}

	if opts.Render {
		s, err := render.Generate(ann)
		if err != nil {
			return nil, err
		}
		out.Render = s
	}

	if opts.Client && unit.Interactive {
		s, err := client.Generate(ann, client.Options{Interactive: opts.Interactive})
		if err != nil {
			return nil, err
		}
		out.Client = s
	}

	return out, nil
}

// validate rejects dead interactivity: a unit that declares reactive
// state, handlers, event bindings or refs without being marked
// interactive would server-render markup that never comes alive, which
// is a silent behavioral bug. Fatal for this component only.
func validate(unit *ir.ComponentUnit) error {
	if unit.Interactive {
		return nil
	}
	if len(unit.States) > 0 {
		return util.NewCompileError(unit.Name, "",
			"component declares reactive state but is not marked interactive")
	}
	if len(unit.Derived) > 0 {
		return util.NewCompileError(unit.Name, "",
			"component declares derived cells but is not marked interactive")
	}
	if len(unit.Handlers) > 0 {
		return util.NewCompileError(unit.Name, "",
			"component declares handlers but is not marked interactive")
	}
	return checkInert(unit, unit.Roots)
}

func checkInert(unit *ir.ComponentUnit, nodes []ir.Node) error {
	for _, node := range nodes {
		switch n := node.(type) {
		case *ir.Element:
			if len(n.Events) > 0 {
				return util.Errorf(unit.Name, n.Tag,
					"element binds %q but the component is not marked interactive", n.Events[0].Event)
			}
			if n.Ref != "" {
				return util.Errorf(unit.Name, n.Tag,
					"element declares a ref callback but the component is not marked interactive")
			}
			if err := checkInert(unit, n.Children); err != nil {
				return err
			}
		case *ir.Conditional:
			if n.WhenTrue != nil {
				if err := checkInert(unit, []ir.Node{n.WhenTrue}); err != nil {
					return err
				}
			}
			if n.WhenFalse != nil {
				if err := checkInert(unit, []ir.Node{n.WhenFalse}); err != nil {
					return err
				}
			}
		case *ir.Loop:
			if n.Template != nil {
				if err := checkInert(unit, []ir.Node{n.Template}); err != nil {
					return err
				}
			}
		case *ir.Component:
			if err := checkInert(unit, n.Children); err != nil {
				return err
			}
		case *ir.Fragment:
			if err := checkInert(unit, n.Children); err != nil {
				return err
			}
		}
	}
	return nil
}
