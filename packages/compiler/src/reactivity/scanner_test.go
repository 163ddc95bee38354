package reactivity

import "testing"

func TestReplaceIdent(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bare read", "i + 1", "__i + 1"},
		{"index access", "items[i]", "items[__i]"},
		{"member access untouched", "obj.i + i", "obj.i + __i"},
		{"string contents untouched", "f('i') + i", "f('i') + __i"},
		{"template hole", "`n=${i}`", "`n=${__i}`"},
		{"longer identifier untouched", "item + i", "item + __i"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReplaceIdent(tt.src, "i", "__i")
			if got != tt.want {
				t.Errorf("ReplaceIdent(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestGuardedCall(t *testing.T) {
	t.Run("recognized", func(t *testing.T) {
		guard, call, ok := GuardedCall("e.key === 'Enter' && submit()")
		if !ok {
			t.Fatalf("GuardedCall not recognized")
		}
		if guard != "e.key === 'Enter'" {
			t.Errorf("guard = %q", guard)
		}
		if call != "submit()" {
			t.Errorf("call = %q", call)
		}
	})

	t.Run("last operand wins", func(t *testing.T) {
		guard, call, ok := GuardedCall("a() && b() && c()")
		if !ok {
			t.Fatalf("GuardedCall not recognized")
		}
		if guard != "a() && b()" || call != "c()" {
			t.Errorf("guard = %q, call = %q", guard, call)
		}
	})

	t.Run("plain call is not guarded", func(t *testing.T) {
		if _, _, ok := GuardedCall("submit()"); ok {
			t.Errorf("plain call reported as guarded")
		}
	})

	t.Run("non-call tail", func(t *testing.T) {
		if _, _, ok := GuardedCall("a && b"); ok {
			t.Errorf("non-call tail reported as guarded")
		}
	})

	t.Run("and inside string", func(t *testing.T) {
		if _, _, ok := GuardedCall("log('a && b')"); ok {
			t.Errorf("&& inside string treated as operator")
		}
	})
}

func TestSplitArrow(t *testing.T) {
	t.Run("parenthesized params", func(t *testing.T) {
		params, body, ok := SplitArrow("(e) => e.key === 'Enter' && submit()")
		if !ok {
			t.Fatalf("SplitArrow not recognized")
		}
		if params != "(e)" {
			t.Errorf("params = %q", params)
		}
		if body != "e.key === 'Enter' && submit()" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("bare param", func(t *testing.T) {
		params, body, ok := SplitArrow("e => handle(e)")
		if !ok {
			t.Fatalf("SplitArrow not recognized")
		}
		if params != "e" || body != "handle(e)" {
			t.Errorf("params = %q, body = %q", params, body)
		}
	})

	t.Run("not an arrow", func(t *testing.T) {
		if _, _, ok := SplitArrow("count() + 1"); ok {
			t.Errorf("non-arrow recognized")
		}
	})

	t.Run("comparison operators are not arrows", func(t *testing.T) {
		if _, _, ok := SplitArrow("a >= b"); ok {
			t.Errorf(">= recognized as arrow")
		}
	})
}
