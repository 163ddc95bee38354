// Package hydration is the single definition of the contract that lets
// server-rendered markup be adopted by the client module without a
// re-render. Both generation backends import these values; neither is
// allowed to spell a marker on its own, so they cannot diverge.
package hydration

import "fmt"

const (
	// AttrScope marks the root element of one interactive component
	// instance. Its value is a runtime-generated instance id, never a
	// compile-time constant: the same component can be instantiated many
	// times on one page.
	AttrScope = "data-pulse"

	// AttrSlot marks a dynamic node that cannot be reached by
	// relative-path DOM navigation from the component root, typically
	// because a preceding sibling is a component boundary.
	AttrSlot = "data-pulse-id"

	// AttrCond marks the rendered branch of a conditional when that
	// branch is a single element. Multi-node branches use the comment
	// pair from CondStart/CondEnd instead; exactly one of the two
	// strategies is used per conditional.
	AttrCond = "data-pulse-cond"

	// AttrIndex carries the positional index of a loop item. Items share
	// one compile-time template; this attribute is what disambiguates
	// them at runtime.
	AttrIndex = "data-pulse-index"

	// AttrEvent carries the event identifier of a delegated or directly
	// bound handler target.
	AttrEvent = "data-pulse-event"

	// AttrKey carries the positional key of a loop item root, sourced
	// from the declared key expression, for keyed reconciliation.
	AttrKey = "data-pulse-key"
)

// CondStart returns the opening marker comment for a multi-node
// conditional branch.
func CondStart(id string) string {
	return fmt.Sprintf("<!--pulse:%s-->", id)
}

// CondEnd returns the closing marker comment for a multi-node conditional
// branch.
func CondEnd(id string) string {
	return fmt.Sprintf("<!--/pulse:%s-->", id)
}

// ScopeSelector returns the CSS selector for a component instance root,
// with the scope id interpolated at runtime by the generated module.
func ScopeSelector(scopeExpr string) string {
	return fmt.Sprintf("[%s=\"%s\"]", AttrScope, scopeExpr)
}

// FocusFamily reports whether an event type belongs to the focus family.
// These events do not bubble, so delegated listeners for them must be
// installed with capture enabled to observe them at an ancestor.
func FocusFamily(event string) bool {
	switch event {
	case "blur", "focus", "focusin", "focusout":
		return true
	}
	return false
}

// BooleanAttr reports whether an attribute has presence/absence semantics.
// The client backend assigns the property directly; the markup backends
// emit the attribute only when the resolved value is truthy.
func BooleanAttr(name string) bool {
	switch name {
	case "allowfullscreen", "async", "autofocus", "autoplay", "checked",
		"controls", "default", "defer", "disabled", "formnovalidate",
		"hidden", "inert", "ismap", "loop", "multiple", "muted",
		"nomodule", "novalidate", "open", "playsinline", "readonly",
		"required", "reversed", "selected":
		return true
	}
	return false
}

// BooleanProp returns the DOM property name for a boolean attribute. Most
// match the attribute; the multi-word ones are camel-cased on the element
// interface.
func BooleanProp(name string) string {
	switch name {
	case "allowfullscreen":
		return "allowFullscreen"
	case "formnovalidate":
		return "formNoValidate"
	case "ismap":
		return "isMap"
	case "nomodule":
		return "noModule"
	case "novalidate":
		return "noValidate"
	case "playsinline":
		return "playsInline"
	case "readonly":
		return "readOnly"
	}
	return name
}
