package adapter

import (
	"sort"
	"sync"
)

// ScriptRegistry tracks which client modules have already been emitted
// during one server-rendered request, so a component instantiated many
// times on a page ships its module exactly once.
//
// A nil registry means there is no request-wide context to deduplicate
// against, as in a deferred or streamed region rendered outside the main
// pass; every Claim then reports true and the region inlines its own
// dependencies.
type ScriptRegistry struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewScriptRegistry creates an empty registry for one request.
func NewScriptRegistry() *ScriptRegistry {
	return &ScriptRegistry{seen: map[string]bool{}}
}

// Claim reports whether the named module still needs to be emitted and
// marks it as emitted.
func (r *ScriptRegistry) Claim(name string) bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[name] {
		return false
	}
	r.seen[name] = true
	return true
}

// Emitted returns the claimed module names in sorted order.
func (r *ScriptRegistry) Emitted() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.seen))
	for name := range r.seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
