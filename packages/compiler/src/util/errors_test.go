package util

import "testing"

func TestCompileError(t *testing.T) {
	t.Run("with path", func(t *testing.T) {
		err := NewCompileError("App", "div[0]/li[2]", "bad node")
		want := "App: div[0]/li[2]: bad node"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("without path", func(t *testing.T) {
		err := NewCompileError("App", "", "bad node")
		want := "App: bad node"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("formatted", func(t *testing.T) {
		err := Errorf("App", "div[0]", "unknown kind %d", 7)
		if err.Msg != "unknown kind 7" {
			t.Errorf("Msg = %q, want %q", err.Msg, "unknown kind 7")
		}
	})
}

func TestNodePath(t *testing.T) {
	got := NodePath([]string{"App", "div[0]", "span[1]"})
	if got != "App/div[0]/span[1]" {
		t.Errorf("NodePath = %q", got)
	}
	if NodePath(nil) != "" {
		t.Errorf("NodePath(nil) = %q, want empty", NodePath(nil))
	}
}
