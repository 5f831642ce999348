package hotpatch

import (
	"os"
)

func setMemoryProtection(window PageWindow, protection memProtect) error {
	return osSetMemoryProtection(window, protection)
}

// Make a page window writable, perform an operation, and then make it
// executable again. A refused first change leaves the window alone.
func applyToProtectedMemory(window PageWindow, operation func()) (err error) {
	if err = setMemoryProtection(window, memProtectRW); err != nil {
		return &ProtectionError{kind: ErrProtectionChange, Window: window, Protection: memProtectRW.String(), Err: err}
	}

	operation()

	if err = setMemoryProtection(window, memProtectRX); err != nil {
		err = &ProtectionError{kind: ErrProtectionRestore, Window: window, Protection: memProtectRX.String(), Err: err}
	}
	return
}

// PageSize returns the memory protection granularity of the host.
func PageSize() uintptr {
	return uintptr(os.Getpagesize())
}

type memProtect int

const (
	memProtectR  memProtect = 1
	memProtectW  memProtect = 2
	memProtectX  memProtect = 4
	memProtectRW            = memProtectR | memProtectW
	memProtectRX            = memProtectR | memProtectX
)

func (p memProtect) String() string {
	flag := func(bit memProtect, c byte) byte {
		if p&bit != 0 {
			return c
		}
		return '-'
	}
	return string([]byte{flag(memProtectR, 'r'), flag(memProtectW, 'w'), flag(memProtectX, 'x')})
}
