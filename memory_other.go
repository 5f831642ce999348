//go:build !unix && !windows

package hotpatch

func osSetMemoryProtection(window PageWindow, protection memProtect) error {
	return ErrNotSupported
}
