//go:build unix

package hotpatch

import (
	"golang.org/x/sys/unix"
)

var protToOS = map[memProtect]int{
	memProtectRW: unix.PROT_READ | unix.PROT_WRITE,
	memProtectRX: unix.PROT_READ | unix.PROT_EXEC,
}

// The whole window goes to the kernel in one call so that a refusal anywhere
// in it is reported before any byte is written.
func osSetMemoryProtection(window PageWindow, protection memProtect) error {
	return unix.Mprotect(SliceAtAddress(window.Start, int(window.Size)), protToOS[protection])
}
