package render

import "pulse-go/packages/compiler/src/emit"

// Header opens every generated module, in both backends.
const Header = "// Generated by pulsec. Do not edit."

// AttrsHelper serializes a spread object into attribute text. The client
// backend embeds the same helper when a re-rendered template spreads
// attributes.
const AttrsHelper = "const $$attrs = (obj) => Object.entries(obj ?? {})" +
	".map(([k, v]) => ` ${k}=\"${String(v).replace(/\"/g, '&quot;')}\"`).join('');"

// SlotHelper renders pass-through children, invoking deferred children
// lazily.
const SlotHelper = "const $$slot = (c) => typeof c === 'function' ? c() : (c ?? '');"

// moduleBuilder wraps the statement builder with the render module's
// header/helper bookkeeping.
type moduleBuilder struct {
	*emit.Builder
	helperAt int
}

func newModuleBuilder() *moduleBuilder {
	b := &moduleBuilder{Builder: emit.NewBuilder()}
	b.Line(Header)
	b.Blank()
	// Helpers, when needed, are inserted here: after the header, before
	// the first statement that uses them.
	b.helperAt = b.Len()
	return b
}

// finish inserts the runtime helpers the walk turned out to need and
// returns the module source.
func (b *moduleBuilder) finish(e *Emitter) string {
	var helpers []string
	if e.needAttrs {
		helpers = append(helpers, AttrsHelper)
	}
	if e.needSlot {
		helpers = append(helpers, SlotHelper)
	}
	if len(helpers) > 0 {
		helpers = append(helpers, "")
		b.InsertAt(b.helperAt, helpers...)
	}
	return b.String()
}
