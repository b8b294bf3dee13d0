package jsrt

import (
	"io"
	"strings"

	"github.com/dop251/goja"
)

// installConsole binds console and a minimal process object. Writers are
// shared with the reporting encoder, so output lands in execution order.
func installConsole(vm *goja.Runtime, stdout, stderr io.Writer) error {
	console := vm.NewObject()
	out := printer(stdout)
	errOut := printer(stderr)

	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"log":   out,
		"info":  out,
		"debug": out,
		"trace": errOut,
		"warn":  errOut,
		"error": errOut,
	} {
		if err := console.Set(name, fn); err != nil {
			return err
		}
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	process := vm.NewObject()
	for name, w := range map[string]io.Writer{"stdout": stdout, "stderr": stderr} {
		stream := vm.NewObject()
		w := w
		if err := stream.Set("write", func(call goja.FunctionCall) goja.Value {
			_, _ = io.WriteString(w, call.Argument(0).String())
			return vm.ToValue(true)
		}); err != nil {
			return err
		}
		if err := process.Set(name, stream); err != nil {
			return err
		}
	}
	if err := process.Set("env", vm.NewObject()); err != nil {
		return err
	}
	if err := process.Set("argv", vm.NewArray("node", "/workspace/solution.js")); err != nil {
		return err
	}
	return vm.Set("process", process)
}

func printer(w io.Writer) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		line := Format(call.Arguments)
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		_, _ = io.WriteString(w, line)
		return goja.Undefined()
	}
}
