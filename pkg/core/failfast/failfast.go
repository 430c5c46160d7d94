// Package failfast provides assertions for conditions the engine is
// allowed to fail hard on, such as nil collaborators and queries
// against an uninitialized machine. Everything else in fsmkit reports
// through the logging sink instead of panicking.
package failfast

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// Err panics if err != nil. Includes a stack trace for debugging.
func Err(err error) {
	if err != nil {
		panic(fmt.Errorf("fail-fast: %w\n%s", err, debug.Stack()))
	}
}

// If panics if condition is false. Allows formatted messages with args.
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(fmt.Errorf("fail-fast: "+message, args...))
	}
}

// NotNil panics if ptr is nil. Handles both untyped nil and typed nil
// pointers and functions correctly.
func NotNil(ptr interface{}, name string) {
	if ptr == nil {
		panic(fmt.Errorf("fail-fast: %s is nil", name))
	}
	v := reflect.ValueOf(ptr)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		panic(fmt.Errorf("fail-fast: %s is nil", name))
	}
	if v.Kind() == reflect.Func && v.IsNil() {
		panic(fmt.Errorf("fail-fast: %s is nil", name))
	}
}
