package hotpatch

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityResolution means the path of the running executable could
	// not be determined. It is fatal for ExecutableNameOrExit.
	ErrIdentityResolution = errors.New("could not resolve executable identity")

	// ErrModuleNotFound means no loaded module matched. Callers should treat
	// it as "feature unavailable" and skip dependent patches.
	ErrModuleNotFound = errors.New("module not found")

	// ErrProtectionChange means the OS refused to make the target pages
	// writable. Nothing was written and no further change was attempted.
	ErrProtectionChange = errors.New("memory protection change refused")

	// ErrProtectionRestore means the payload was written but the pages could
	// not be made executable again. The pages are left writable and not
	// executable; executing code in them will fault.
	ErrProtectionRestore = errors.New("memory protection restore failed")

	ErrInvalidBase  = errors.New("module base below its load bias")
	ErrNotSupported = errors.New("not supported on this platform")
)

// ProtectionError reports a refused protection change on a page window.
// It matches both its kind (ErrProtectionChange or ErrProtectionRestore) and
// the underlying OS error under errors.Is.
type ProtectionError struct {
	kind       error
	Window     PageWindow
	Protection string
	Err        error
}

func (e *ProtectionError) Error() string {
	return fmt.Sprintf("%v: setting %v to %v: %v", e.kind, e.Window, e.Protection, e.Err)
}

func (e *ProtectionError) Unwrap() []error {
	return []error{e.kind, e.Err}
}

// LeftWritable reports whether the window was left writable and not
// executable.
func (e *ProtectionError) LeftWritable() bool {
	return e.kind == ErrProtectionRestore
}
