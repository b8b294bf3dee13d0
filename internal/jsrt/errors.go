package jsrt

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// Thrown is a JavaScript value raised as a fault without going through a
// goja exception, such as the argument of done(err).
type Thrown struct {
	Value goja.Value
}

func (t *Thrown) Error() string {
	if t.Value == nil {
		return "undefined"
	}
	return t.Value.String()
}

// ThrownValue extracts the JavaScript value behind err, if there is one.
func ThrownValue(err error) (goja.Value, bool) {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return exc.Value(), true
	}
	var th *Thrown
	if errors.As(err, &th) {
		return th.Value, true
	}
	return nil, false
}

// Translate unwraps interrupts raised with an error value so callers can
// match on the original error.
func Translate(err error) error {
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		if inner, ok := ie.Value().(error); ok {
			return inner
		}
		return fmt.Errorf("interrupted: %v", ie.Value())
	}
	return err
}

// Call invokes fn from native code. Interrupts are re-armed before
// returning so they keep unwinding the surrounding JavaScript instead of
// being swallowed by the native caller.
func Call(vm *goja.Runtime, fn goja.Callable, this goja.Value, args ...goja.Value) (goja.Value, error) {
	if this == nil {
		this = goja.Undefined()
	}
	v, err := fn(this, args...)
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		vm.Interrupt(ie.Value())
	}
	return v, err
}
