package vm

import (
	"fmt"
	"time"

	"github.com/loxlang/loxvm/lang/value"
)

// installNatives populates vm's globals with the standard native library:
// clock, str, len, and type.
func installNatives(vm *VM) {
	define := func(name string, fn value.NativeFn) {
		key := vm.heap.Intern(name)
		vm.push(value.FromObj(key))
		native := vm.heap.NewNative(name, fn)
		vm.pop()
		vm.globals.Set(key, value.FromObj(native))
	}

	define("clock", nativeClock)
	define("str", vm.nativeStr)
	define("len", nativeLen)
	define("type", vm.nativeType)
}

func nativeClock(argCount int, args []value.Value) (value.Value, error) {
	if argCount != 0 {
		return value.Nil, fmt.Errorf("clock() takes no arguments")
	}
	return value.Number(float64(time.Now().UnixNano()) / float64(time.Second)), nil
}

// nativeStr is a method (rather than a free function) only because it needs
// vm.heap.Intern to produce its result string.
func (vm *VM) nativeStr(argCount int, args []value.Value) (value.Value, error) {
	if argCount != 1 {
		return value.Nil, fmt.Errorf("str() takes exactly one argument")
	}
	return value.FromObj(vm.heap.Intern(args[0].String())), nil
}

func nativeLen(argCount int, args []value.Value) (value.Value, error) {
	if argCount != 1 {
		return value.Nil, fmt.Errorf("len() takes exactly one argument")
	}
	arg := args[0]
	if !arg.ObjIs(value.ObjString) {
		return value.Nil, fmt.Errorf("len() expects a string, got %s", arg.Type())
	}
	return value.Number(float64(len(arg.AsObj().(*value.String).Chars))), nil
}

func (vm *VM) nativeType(argCount int, args []value.Value) (value.Value, error) {
	if argCount != 1 {
		return value.Nil, fmt.Errorf("type() takes exactly one argument")
	}
	return value.FromObj(vm.heap.Intern(args[0].Type())), nil
}
