//go:build linux && cgo

package hotpatch

// #include <stdint.h>
import "C"

import (
	"runtime/cgo"
)

//export hotpatchVisitModule
func hotpatchVisitModule(name *C.char, base C.uintptr_t, handle C.uintptr_t) C.int {
	yield := cgo.Handle(handle).Value().(func(LoadedModule) bool)
	if yield(LoadedModule{Name: C.GoString(name), BaseAddress: uintptr(base)}) {
		return 0
	}
	return 1
}
