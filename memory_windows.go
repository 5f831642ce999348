package hotpatch

import (
	"golang.org/x/sys/windows"
)

// https://docs.microsoft.com/en-us/windows/win32/memory/memory-protection-constants
var protToOS = map[memProtect]uint32{
	memProtectRW: windows.PAGE_READWRITE,
	memProtectRX: windows.PAGE_EXECUTE_READ,
}

func osSetMemoryProtection(window PageWindow, protection memProtect) error {
	var oldProtection uint32
	return windows.VirtualProtect(window.Start, window.Size, protToOS[protection], &oldProtection)
}
