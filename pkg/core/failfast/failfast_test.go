package failfast

import (
	"errors"
	"testing"
)

func TestErr(t *testing.T) {
	t.Run("no error", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Expected no panic, got: %v", r)
			}
		}()
		Err(nil)
	})

	t.Run("with error", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for non-nil error")
			}
		}()
		Err(errors.New("boom"))
	})
}

func TestIf(t *testing.T) {
	t.Run("condition true", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Expected no panic, got: %v", r)
			}
		}()
		If(true, "should not fire")
	})

	t.Run("condition false", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for false condition")
			}
		}()
		If(false, "machine %s has no states", "m1")
	})
}

func TestNotNil(t *testing.T) {
	t.Run("non-nil value", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Expected no panic, got: %v", r)
			}
		}()
		NotNil("value", "value")
	})

	t.Run("untyped nil", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for nil")
			}
		}()
		NotNil(nil, "collaborator")
	})

	t.Run("typed nil pointer", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for typed nil pointer")
			}
		}()
		var p *int
		NotNil(p, "pointer")
	})

	t.Run("nil function", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for nil function")
			}
		}()
		var fn func()
		NotNil(fn, "callback")
	})
}
