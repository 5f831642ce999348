// Package hotpatch provides functions for patching the code of the process it
// is loaded into.
//
// The package does two things: it locates the base address of dynamically
// loaded modules (FindModuleBase), and it overwrites bytes in executable
// memory (PatchBytes, PatchUint32LE), temporarily making the covering pages
// writable and restoring them to read+execute afterward.
//
// Nothing here makes a write atomic with respect to other threads executing
// the patched instructions. Apply patches from a single initialization path
// before the code being patched can run, e.g. from a shared library
// constructor (see cmd/preload).
//
// Misuse will quickly lead to undefined behavior and bizarre crashes. You
// have been warned.
package hotpatch

import (
	"fmt"
	"runtime/debug"
	"unsafe"

	"k8s.io/klog/v2"
)

// PatchRequest is a single overwrite of Payload at Address.
type PatchRequest struct {
	Address uintptr
	Payload []byte
}

// Apply performs the request. See PatchBytes.
func (r PatchRequest) Apply() error {
	return PatchBytes(r.Address, r.Payload)
}

// PatchBytes overwrites len(payload) bytes at address.
//
// The minimal page-aligned window covering the target range is made
// readable+writable, the payload is copied in, and the window is set to
// readable+executable. If the first protection change is refused, nothing is
// written, no further protection change is attempted, and the returned error
// matches ErrProtectionChange. If the write
// succeeded but the window could not be made executable again, the error
// matches ErrProtectionRestore and the pages are left writable.
//
// Applying the same patch twice yields the same bytes as applying it once.
func PatchBytes(address uintptr, payload []byte) (err error) {
	if len(payload) == 0 {
		return
	}
	window := NewPageWindow(address, uintptr(len(payload)), PageSize())
	klog.V(4).Infof("hotpatch: writing %d bytes at %#x (window %v)", len(payload), address, window)
	return applyToProtectedMemory(window, func() {
		copy(SliceAtAddress(address, len(payload)), payload)
	})
}

// PatchUint32LE overwrites 4 bytes at address with value, encoded little
// endian.
func PatchUint32LE(address uintptr, value uint32) error {
	return PatchBytes(address, EncodeUint32LE(value))
}

// SliceAtAddress returns a byte slice aliasing length bytes of memory at
// address. The memory must be mapped and readable.
func SliceAtAddress(address uintptr, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(address)), length)
}

// GetSliceAddr returns the address of the first element of a slice.
func GetSliceAddr(slice []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(slice)))
}

// ReadMemory returns a copy of length bytes at address.
func ReadMemory(address uintptr, length int) []byte {
	out := make([]byte, length)
	copy(out, SliceAtAddress(address, length))
	return out
}

// TryReadMemory is ReadMemory, but a fault on an unmapped address is returned
// as an error instead of crashing the process.
func TryReadMemory(address uintptr, length int) (out []byte, err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if e := recover(); e != nil {
			out = nil
			err = fmt.Errorf("reading %d bytes at %#x: %v", length, address, e)
		}
	}()
	return ReadMemory(address, length), nil
}
